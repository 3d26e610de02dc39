package request

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"sort"
)

// FilePart is one file attached to a multipart body.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// WithMultipart encodes fields and files as multipart/form-data. Fields are
// written in key order so the body is deterministic.
func WithMultipart(fields map[string]string, files ...FilePart) RequestOption {
	return func(o *RequestOptions) {
		body, contentType, err := encodeMultipart(fields, files)
		if err != nil {
			o.Body = errReader{err: err}
			return
		}
		WithBody(body)(o)
		WithHeader("Content-Type", contentType)(o)
	}
}

func encodeMultipart(fields map[string]string, files []FilePart) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.Field+`"; filename="`+f.Filename+`"`)
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
