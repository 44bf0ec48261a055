package command

import "testing"

func TestTypeClassification(t *testing.T) {
	multivalued := map[Type]bool{
		TypeNumber: false, TypeString: false, TypeObject: false,
		TypeNumberArray: true, TypeStringArray: true, TypeObjectArray: true,
		TypeBlob: false, TypeBlobArray: true, TypeFile: false, TypeFileArray: true,
	}
	encoded := map[Type]bool{
		TypeNumber: true, TypeString: true, TypeObject: true,
		TypeNumberArray: true, TypeStringArray: true, TypeObjectArray: true,
		TypeBlob: false, TypeBlobArray: false, TypeFile: false, TypeFileArray: false,
	}
	for typ, want := range multivalued {
		if got := typ.Multivalued(); got != want {
			t.Errorf("%s.Multivalued() = %v, want %v", typ, got, want)
		}
	}
	for typ, want := range encoded {
		if got := typ.TransportEncoded(); got != want {
			t.Errorf("%s.TransportEncoded() = %v, want %v", typ, got, want)
		}
	}
	if Type("decimal").Valid() {
		t.Error("unknown type should not be valid")
	}
}

func TestParamKey(t *testing.T) {
	single := Param{Name: "age", Type: TypeNumber}
	if single.Key() != "age" {
		t.Errorf("expected key 'age', got %q", single.Key())
	}
	array := Param{Name: "tags", Type: TypeStringArray}
	if array.Key() != "tags[]" {
		t.Errorf("expected key 'tags[]', got %q", array.Key())
	}
	files := Param{Name: "docs", Type: TypeFileArray}
	if files.Key() != "docs[]" {
		t.Errorf("expected key 'docs[]', got %q", files.Key())
	}
}

func TestParamDefinition(t *testing.T) {
	p := Param{Name: "limit", Type: TypeNumber, Required: false, Default: 10.0}
	def := p.Definition()
	if def.Name != "limit" || def.Type != TypeNumber || def.Required {
		t.Errorf("unexpected definition: %+v", def)
	}
	if def.Default != 10.0 {
		t.Errorf("expected default 10.0, got %v", def.Default)
	}

	req := Param{Name: "target", Type: TypeString, Required: true}
	if d := req.Definition(); d.Default != nil {
		t.Errorf("expected nil default, got %v", d.Default)
	}
}
