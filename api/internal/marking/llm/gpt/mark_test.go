package gpt

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mark-engine/api/internal/marking/llm"
)

func testRequest(image string) llm.Request {
	return llm.Request{
		System: "mark strictly",
		Prompt: "INPUT_JSON:\n{}",
		Schema: llm.MarkSchema,
		Image:  image,
	}
}

func TestGenerateStructured_SendsStrictSchemaAndImage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(b, &got))

		text := "```json\n" + `{"userMark":2,"markingTable":"| Point |","annotations":{"strong":["x"],"weak":[]},"feedback":"ok"}` + "\n```"
		env := map[string]any{"output": []any{map[string]any{
			"content": []any{map[string]any{"type": "output_text", "text": text}},
		}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(env)
	}))
	defer srv.Close()

	e := New("sk-test", "gpt-4o-mini").WithBaseURL(srv.URL).WithHTTPClient(srv.Client())
	out, err := e.GenerateStructured(context.Background(), testRequest("data:image/png;base64,aGVsbG8="))
	require.NoError(t, err)

	assert.Equal(t, 2.0, out.UserMark)
	assert.Equal(t, "| Point |", out.MarkingTable)
	assert.Equal(t, []string{"x"}, out.Annotations.Strong)
	assert.Equal(t, "ok", out.Feedback)

	format := got["text"].(map[string]any)["format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, true, format["strict"])
	schema := format["schema"].(map[string]any)
	assert.Equal(t, false, schema["additionalProperties"])

	input := got["input"].([]any)
	require.Len(t, input, 2)
	user := input[1].(map[string]any)["content"].([]any)
	require.Len(t, user, 2)
	assert.Equal(t, "input_image", user[1].(map[string]any)["type"])
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", user[1].(map[string]any)["image_url"])
	assert.Equal(t, float64(0), got["temperature"])
}

func TestGenerateStructured_TextOnly(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		_, _ = w.Write([]byte(`{"output_text":"{\"userMark\":1,\"markingTable\":\"\",\"annotations\":{\"strong\":[],\"weak\":[]},\"feedback\":\"\"}"}`))
	}))
	defer srv.Close()

	e := New("sk-test", "gpt-5-mini").WithBaseURL(srv.URL)
	out, err := e.GenerateStructured(context.Background(), testRequest(""))
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.UserMark)

	user := got["input"].([]any)[1].(map[string]any)["content"].([]any)
	assert.Len(t, user, 1)
	_, hasTemp := got["temperature"]
	assert.False(t, hasTemp)
}

func TestGenerateStructured_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New("sk-test", "").WithBaseURL(srv.URL).GenerateStructured(context.Background(), testRequest(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai mark 429")

	_, err = New("", "").GenerateStructured(context.Background(), testRequest(""))
	assert.Error(t, err)

	_, err = New("sk-test", "").WithBaseURL(srv.URL).GenerateStructured(context.Background(), testRequest("data:application/pdf;base64,aGVsbG8="))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported MIME")
}

func TestResponseText(t *testing.T) {
	raw := `{"output":[{"content":[{"type":"output_text","text":"a"},{"type":"refusal","refusal":"no"},{"type":"reasoning","text":"hmm"}]},` +
		`{"content":[{"type":"output_text","text":"b"}]}]}`
	assert.Equal(t, "a\nb", responseText([]byte(raw)))
	assert.Equal(t, "x", responseText([]byte(`{"output_text":" x ","output":[{"content":[{"type":"output_text","text":"y"}]}]}`)))
	assert.Equal(t, "", responseText([]byte(`not json`)))
}
