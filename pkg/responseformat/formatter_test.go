package responseformat

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type sample struct {
	Name  string `json:"name"`
	Value Float  `json:"value"`
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name   string
		target string
		accept string
		want   string
	}{
		{name: "default", target: "/x", want: ContentTypeJSON},
		{name: "query msgpack", target: "/x?format=msgpack", want: ContentTypeMsgPack},
		{name: "accept msgpack", target: "/x", accept: ContentTypeMsgPack, want: ContentTypeMsgPack},
		{name: "query wins over accept", target: "/x?format=json", accept: ContentTypeMsgPack, want: ContentTypeJSON},
		{name: "unknown format", target: "/x?format=xml", want: ContentTypeJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			assert.Equal(t, tt.want, Negotiate(req))
		})
	}
}

func TestFloatEncoding(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		json  string
		null  bool
	}{
		{name: "finite", value: 12.5, json: `{"name":"a","value":12.5}`},
		{name: "zero", value: 0, json: `{"name":"a","value":0}`},
		{name: "nan", value: math.NaN(), json: `{"name":"a","value":null}`, null: true},
		{name: "positive inf", value: math.Inf(1), json: `{"name":"a","value":null}`, null: true},
		{name: "negative inf", value: math.Inf(-1), json: `{"name":"a","value":null}`, null: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sample{Name: "a", Value: Float(tt.value)}

			body, err := Encode(ContentTypeJSON, in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.json, string(body))

			var fromJSON sample
			require.NoError(t, json.Unmarshal(body, &fromJSON))

			body, err = Encode(ContentTypeMsgPack, in)
			require.NoError(t, err)
			var raw map[string]any
			require.NoError(t, msgpack.Unmarshal(body, &raw))
			assert.Equal(t, "a", raw["name"])

			var fromMsgPack sample
			dec := msgpack.NewDecoder(bytes.NewReader(body))
			dec.SetCustomStructTag("json")
			require.NoError(t, dec.Decode(&fromMsgPack))

			if tt.null {
				assert.Nil(t, raw["value"])
				assert.False(t, fromJSON.Value.Valid())
				assert.False(t, fromMsgPack.Value.Valid())
				return
			}
			assert.Equal(t, tt.value, raw["value"])
			assert.Equal(t, tt.value, fromJSON.Value.Float64())
			assert.Equal(t, tt.value, fromMsgPack.Value.Float64())
		})
	}
}

func TestWriteResponse(t *testing.T) {
	f := NewFormatter()

	t.Run("json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/estimate", nil)
		require.NoError(t, f.WriteResponse(rec, req, sample{Name: "roof", Value: Null()}, map[string]string{"Cache-Control": "no-store"}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ContentTypeJSON, rec.Header().Get("Content-Type"))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		assert.JSONEq(t, `{"name":"roof","value":null}`, rec.Body.String())
	})

	t.Run("msgpack with status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/estimate?format=msgpack", nil)
		require.NoError(t, f.WriteStatus(rec, req, http.StatusAccepted, sample{Name: "roof", Value: 3}, nil))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, ContentTypeMsgPack, rec.Header().Get("Content-Type"))
		var raw map[string]any
		require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &raw))
		assert.Equal(t, 3.0, raw["value"])
	})

	t.Run("plain NaN fails before writing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/estimate", nil)
		err := f.WriteResponse(rec, req, map[string]float64{"output": math.NaN()}, nil)

		assert.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "output")
	})
}
