package command

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/url"
	"reflect"
	"testing"
)

func greetContract() *Contract {
	return &Contract{
		Name: "greet",
		Params: []Param{
			{Name: "target", Type: TypeString, Required: true},
		},
	}
}

func TestValidateAuth(t *testing.T) {
	open := &Contract{Name: "open"}
	if !open.ValidateAuth(false) {
		t.Error("command without auth requirement should accept anonymous callers")
	}

	gated := &Contract{Name: "gated", AuthRequired: true}
	if gated.ValidateAuth(false) {
		t.Error("auth-required command should reject anonymous callers")
	}
	if !gated.ValidateAuth(true) {
		t.Error("auth-required command should accept authenticated callers")
	}
}

func TestValidatePermissions(t *testing.T) {
	open := &Contract{Name: "open"}
	if !open.ValidatePermissions(false) {
		t.Error("command without permissions should not consult the collaborator")
	}

	gated := &Contract{Name: "gated", Permissions: []string{"tags.write"}}
	if gated.ValidatePermissions(false) {
		t.Error("expected rejection when permissions are not held")
	}
	if !gated.ValidatePermissions(true) {
		t.Error("expected acceptance when permissions are held")
	}
}

func TestValidateParamExistence_CollectsAllMissing(t *testing.T) {
	c := &Contract{
		Name: "update",
		Params: []Param{
			{Name: "id", Type: TypeNumber, Required: true},
			{Name: "title", Type: TypeString, Required: true},
			{Name: "note", Type: TypeString, Required: false},
			{Name: "tags", Type: TypeStringArray, Required: true},
		},
	}

	err := c.ValidateParamExistence(NewData(url.Values{}, nil))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Kind != ErrMissingParams {
		t.Errorf("expected kind %q, got %q", ErrMissingParams, verr.Kind)
	}
	want := []string{"id", "title", "tags"}
	if !reflect.DeepEqual(verr.Params, want) {
		t.Errorf("expected missing %v, got %v", want, verr.Params)
	}
	if verr.Error() != "The following parameters were missing: id, title, tags" {
		t.Errorf("unexpected message: %q", verr.Error())
	}
}

func TestValidateParamExistence_ArrayUsesTransportKey(t *testing.T) {
	c := &Contract{
		Name:   "tag",
		Params: []Param{{Name: "tags", Type: TypeStringArray, Required: true}},
	}

	// Value posted under the bare name does not satisfy an array param.
	err := c.ValidateParamExistence(NewData(url.Values{"tags": {"a"}}, nil))
	if err == nil {
		t.Fatal("expected missing-params failure")
	}

	if err := c.ValidateParamExistence(NewData(url.Values{"tags[]": {"a"}}, nil)); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
}

func TestValidateParamExistence_Success(t *testing.T) {
	c := greetContract()
	data := NewData(url.Values{"target": {`"world"`}}, nil)
	if err := c.ValidateParamExistence(data); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
}

func TestValidateParamTypes_String(t *testing.T) {
	c := greetContract()
	typed, err := c.ValidateParamTypes(NewData(url.Values{"target": {`"world"`}}, nil))
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	if typed["target"] != "world" {
		t.Errorf("expected %q, got %v", "world", typed["target"])
	}
}

func TestValidateParamTypes_StringFallback(t *testing.T) {
	// Plain text that was never stringified decodes to itself.
	c := greetContract()
	typed, err := c.ValidateParamTypes(NewData(url.Values{"target": {"world"}}, nil))
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	if typed["target"] != "world" {
		t.Errorf("expected %q, got %v", "world", typed["target"])
	}
}

func TestValidateParamTypes_Number(t *testing.T) {
	c := &Contract{
		Name:   "age",
		Params: []Param{{Name: "age", Type: TypeNumber, Required: true}},
	}

	typed, err := c.ValidateParamTypes(NewData(url.Values{"age": {"42.5"}}, nil))
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	if typed["age"] != 42.5 {
		t.Errorf("expected 42.5, got %v", typed["age"])
	}

	_, err = c.ValidateParamTypes(NewData(url.Values{"age": {`"not-a-number"`}}, nil))
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Kind != ErrInvalidParams {
		t.Fatalf("expected invalid-params failure, got %v", err)
	}
	if verr.Error() != "The following parameters were of the wrong type: age" {
		t.Errorf("unexpected message: %q", verr.Error())
	}
}

func TestValidateParamTypes_Object(t *testing.T) {
	c := &Contract{
		Name:   "save",
		Params: []Param{{Name: "payload", Type: TypeObject, Required: true}},
	}
	typed, err := c.ValidateParamTypes(NewData(url.Values{"payload": {`{"a": 1, "b": "x"}`}}, nil))
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	obj, ok := typed["payload"].(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", typed["payload"])
	}
	if obj["a"] != 1.0 || obj["b"] != "x" {
		t.Errorf("unexpected object: %v", obj)
	}
}

func TestValidateParamTypes_RepeatedFieldArray(t *testing.T) {
	c := &Contract{
		Name:   "tag",
		Params: []Param{{Name: "tags", Type: TypeStringArray, Required: true}},
	}
	typed, err := c.ValidateParamTypes(NewData(url.Values{"tags[]": {"a", "b"}}, nil))
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	if !reflect.DeepEqual(typed["tags"], []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", typed["tags"])
	}
}

func TestValidateParamTypes_JSONArray(t *testing.T) {
	c := &Contract{
		Name:   "sum",
		Params: []Param{{Name: "values", Type: TypeNumberArray, Required: true}},
	}
	typed, err := c.ValidateParamTypes(NewData(url.Values{"values[]": {"[1, 2.5, 3]"}}, nil))
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	if !reflect.DeepEqual(typed["values"], []float64{1, 2.5, 3}) {
		t.Errorf("unexpected values: %v", typed["values"])
	}
}

func TestValidateParamTypes_EmptyArrayIsValid(t *testing.T) {
	c := &Contract{
		Name:   "sum",
		Params: []Param{{Name: "values", Type: TypeNumberArray, Required: true}},
	}

	data := NewData(url.Values{"values[]": {"[]"}}, nil)
	if err := c.ValidateParamExistence(data); err != nil {
		t.Fatalf("present empty array flagged as missing: %v", err)
	}
	typed, err := c.ValidateParamTypes(data)
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	if vals, ok := typed["values"].([]float64); !ok || len(vals) != 0 {
		t.Errorf("expected empty []float64, got %v", typed["values"])
	}

	// Missing entirely is missing, not an empty valid array.
	if err := c.ValidateParamExistence(NewData(url.Values{}, nil)); err == nil {
		t.Error("absent required array should be reported missing")
	}
}

func TestValidateParamTypes_ObjectArray(t *testing.T) {
	c := &Contract{
		Name:   "batch",
		Params: []Param{{Name: "items", Type: TypeObjectArray, Required: true}},
	}
	typed, err := c.ValidateParamTypes(NewData(url.Values{"items[]": {`{"id": 1}`, `{"id": 2}`}}, nil))
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	items, ok := typed["items"].([]map[string]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 objects, got %v", typed["items"])
	}
	if items[1]["id"] != 2.0 {
		t.Errorf("unexpected element: %v", items[1])
	}
}

func TestValidateParamTypes_AccumulatesInvalid(t *testing.T) {
	c := &Contract{
		Name: "multi",
		Params: []Param{
			{Name: "age", Type: TypeNumber, Required: true},
			{Name: "payload", Type: TypeObject, Required: true},
			{Name: "note", Type: TypeString, Required: false},
		},
	}
	data := NewData(url.Values{
		"age":     {`"nope"`},
		"payload": {`[1,2]`},
		"note":    {`"fine"`},
	}, nil)

	_, err := c.ValidateParamTypes(data)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{"age", "payload"}
	if !reflect.DeepEqual(verr.Params, want) {
		t.Errorf("expected invalid %v, got %v", want, verr.Params)
	}
}

func TestValidateParamTypes_SkipsAbsentOptional(t *testing.T) {
	c := &Contract{
		Name: "page",
		Params: []Param{
			{Name: "q", Type: TypeString, Required: true},
			{Name: "limit", Type: TypeNumber, Required: false, Default: 25.0},
		},
	}
	typed, err := c.ValidateParamTypes(NewData(url.Values{"q": {`"go"`}}, nil))
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	if _, present := typed["limit"]; present {
		t.Error("absent optional param should be omitted from typed output")
	}

	c.ApplyDefaults(typed)
	if typed["limit"] != 25.0 {
		t.Errorf("expected default 25.0 after ApplyDefaults, got %v", typed["limit"])
	}
	if typed["q"] != "go" {
		t.Errorf("default application must not clobber present params, got %v", typed["q"])
	}
}

func TestValidateParamTypes_Idempotent(t *testing.T) {
	c := &Contract{
		Name: "mix",
		Params: []Param{
			{Name: "age", Type: TypeNumber, Required: true},
			{Name: "tags", Type: TypeStringArray, Required: true},
		},
	}
	data := NewData(url.Values{"age": {"30"}, "tags[]": {"a", "b"}}, nil)

	first, err := c.ValidateParamTypes(data)
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	second, err := c.ValidateParamTypes(data)
	if err != nil {
		t.Fatalf("unexpected failure on second run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical output, got %v then %v", first, second)
	}
}

// multipartData builds a Data whose file part carries the given fields.
func multipartData(t *testing.T, files map[string][]string) Data {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, contents := range files {
		for i, content := range contents {
			fw, err := w.CreateFormFile(key, "part"+string(rune('0'+i)))
			if err != nil {
				t.Fatalf("create form file: %v", err)
			}
			fw.Write([]byte(content))
		}
	}
	w.Close()

	reader := multipart.NewReader(&buf, w.Boundary())
	form, err := reader.ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	return NewData(url.Values{}, form.File)
}

func TestValidateParamTypes_Blob(t *testing.T) {
	c := &Contract{
		Name:   "stash",
		Params: []Param{{Name: "payload", Type: TypeBlob, Required: true}},
	}
	data := multipartData(t, map[string][]string{"payload": {"\x00\x01binary"}})

	typed, err := c.ValidateParamTypes(data)
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	b, ok := typed["payload"].([]byte)
	if !ok {
		t.Fatalf("expected []byte, got %T", typed["payload"])
	}
	if !bytes.Equal(b, []byte("\x00\x01binary")) {
		t.Errorf("blob content mangled: %q", b)
	}
}

func TestValidateParamTypes_FileArray(t *testing.T) {
	c := &Contract{
		Name:   "stash",
		Params: []Param{{Name: "docs", Type: TypeFileArray, Required: true}},
	}
	data := multipartData(t, map[string][]string{"docs[]": {"one", "two"}})

	if err := c.ValidateParamExistence(data); err != nil {
		t.Fatalf("file part should satisfy existence: %v", err)
	}
	typed, err := c.ValidateParamTypes(data)
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	fhs, ok := typed["docs"].([]*multipart.FileHeader)
	if !ok || len(fhs) != 2 {
		t.Fatalf("expected 2 file headers, got %v", typed["docs"])
	}
}

func TestDefinitionRoundTrip(t *testing.T) {
	c := &Contract{
		Name: "update",
		Params: []Param{
			{Name: "id", Type: TypeNumber, Required: true},
			{Name: "tags", Type: TypeStringArray, Required: false},
		},
	}
	def := c.Definition()
	if def.Name != "update" {
		t.Errorf("expected name 'update', got %q", def.Name)
	}
	if len(def.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(def.Params))
	}
	// The definition must carry exactly what the pipeline enforces: names,
	// types, and required flags in declared order.
	for i, p := range c.Params {
		if def.Params[i].Name != p.Name || def.Params[i].Type != p.Type || def.Params[i].Required != p.Required {
			t.Errorf("param %d definition mismatch: %+v vs %+v", i, def.Params[i], p)
		}
	}
}
