package command

import (
	"mime/multipart"
	"net/url"
)

// Data is the string-keyed mapping of raw request values a command is
// validated against. Form fields (possibly repeated) live in the value
// part; blob and file payloads live in the file part. The dispatch layer
// builds a Data per request; instances are never shared across requests.
type Data struct {
	values url.Values
	files  map[string][]*multipart.FileHeader
}

// NewData builds a Data from parsed form values and multipart file
// headers. Either argument may be nil.
func NewData(values url.Values, files map[string][]*multipart.FileHeader) Data {
	if values == nil {
		values = url.Values{}
	}
	return Data{values: values, files: files}
}

// Has reports whether any value or file is present under the given
// transport key.
func (d Data) Has(key string) bool {
	if _, ok := d.values[key]; ok {
		return true
	}
	_, ok := d.files[key]
	return ok
}

// GetList returns all form values posted under key, in order. A client
// may post multiple values under one repeated field name.
func (d Data) GetList(key string) []string {
	return d.values[key]
}

// Get returns the sole form value under key.
func (d Data) Get(key string) (string, bool) {
	vs, ok := d.values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Files returns the multipart file headers posted under key, in order.
func (d Data) Files(key string) []*multipart.FileHeader {
	return d.files[key]
}
