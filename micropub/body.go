package micropub

import (
	"encoding/json"
	"mime/multipart"
	"net/http"

	"github.com/elnormous/contenttype"
)

var (
	jsonMediaType      = contenttype.NewMediaType("application/json")
	multipartMediaType = contenttype.NewMediaType("multipart/form-data")
)

// File is one uploaded file from a multipart body. The dispatcher passes it
// through unexamined; it is closed when request handling returns.
type File struct {
	Field  string
	File   multipart.File
	Header *multipart.FileHeader
}

// parsedBody is the outcome of body parsing. A nil data map means the body
// could not be interpreted as a mapping; the dispatcher decides what that
// means after authentication has run.
type parsedBody struct {
	data   map[string]any
	files  []File
	isJSON bool
}

func (b *parsedBody) fileByField(field string) *File {
	for i := range b.files {
		if b.files[i].Field == field {
			return &b.files[i]
		}
	}

	return nil
}

func (b *parsedBody) closeFiles() {
	for _, f := range b.files {
		if f.File != nil {
			f.File.Close()
		}
	}
}

// readBody parses a POST body according to its content type: an exact
// application/json media type is decoded as JSON, multipart/form-data is
// parsed with file extraction, and everything else goes through the standard
// form parser. Parse failures leave data nil rather than writing a response,
// since authentication must run before a shape error is reported.
func (e *Endpoint) readBody(w http.ResponseWriter, r *http.Request) parsedBody {
	ctype, err := contenttype.GetMediaType(r)
	if err == nil && ctype.Matches(multipartMediaType) {
		return e.readMultipartBody(w, r)
	}

	r.Body = http.MaxBytesReader(w, r.Body, e.limits.MaxPayloadSize)

	if err == nil && ctype.Matches(jsonMediaType) {
		return readJSONBody(r)
	}

	return readFormBody(r)
}

func readJSONBody(r *http.Request) parsedBody {
	body := parsedBody{isJSON: true}

	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		return body
	}

	body.data = data
	return body
}

func readFormBody(r *http.Request) parsedBody {
	if err := r.ParseForm(); err != nil {
		return parsedBody{}
	}

	return parsedBody{data: flattenValues(r.PostForm)}
}

func (e *Endpoint) readMultipartBody(w http.ResponseWriter, r *http.Request) parsedBody {
	r.Body = http.MaxBytesReader(w, r.Body, e.limits.MaxPayloadSize+e.limits.MaxFileSize)

	if err := r.ParseMultipartForm(e.limits.MaxMultipartMemory); err != nil {
		return parsedBody{}
	}

	body := parsedBody{data: flattenValues(r.MultipartForm.Value)}

	for field, headers := range r.MultipartForm.File {
		for _, header := range headers {
			if e.limits.MaxFileSize > 0 && header.Size > e.limits.MaxFileSize {
				continue
			}

			f, err := header.Open()
			if err != nil {
				continue
			}

			body.files = append(body.files, File{Field: field, File: f, Header: header})
		}
	}

	return body
}

// flattenValues mirrors how form values surface in a parsed body: one value
// stays a scalar, repeated keys become a list.
func flattenValues(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))

	for key, arr := range values {
		switch len(arr) {
		case 0:
			continue
		case 1:
			out[key] = arr[0]
		default:
			asAny := make([]any, len(arr))
			for i, v := range arr {
				asAny[i] = v
			}
			out[key] = asAny
		}
	}

	return out
}
