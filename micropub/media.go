package micropub

import "net/http"

// Media returns the handler for the media upload endpoint. It shares
// authentication and response coercion with the main endpoint but accepts
// exactly one operation: a POST carrying an uploaded file under the "file"
// field.
func (e *Endpoint) Media() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body parsedBody
		if r.Method == http.MethodPost {
			body = e.readBody(w, r)
			defer body.closeFiles()
		}

		r, ok := e.authenticate(w, r, body.data)
		if !ok {
			return
		}

		if e.cb.MediaExtension != nil {
			if res := e.cb.MediaExtension(r.Context(), r); res != nil {
				writeResult(w, r, res, http.StatusOK)
				return
			}
		}

		if r.Method != http.MethodPost {
			writeResult(w, r, CodeInvalidRequest, 0)
			return
		}

		file := body.fileByField("file")
		if file == nil {
			writeResult(w, r, Fail(CodeInvalidRequest, "media upload requires a file part"), 0)
			return
		}

		if e.cb.Media == nil {
			writeResult(w, r, CodeInvalidRequest, 0)
			return
		}

		res := e.cb.Media(r.Context(), *file)

		switch v := res.(type) {
		case Location:
			writeCreated(w, string(v))
		case nil:
			writeResult(w, r, CodeInvalidRequest, 0)
		default:
			writeResult(w, r, v, http.StatusOK)
		}
	})
}
