// Package commands holds the built-in command set. They exercise the
// whole parameter type surface and double as live examples of how a
// contract is declared.
package commands

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/af-corp/commandgate/internal/command"
)

// Register adds every built-in command to the registry.
func Register(reg *command.Registry) error {
	builtins := []struct {
		contract *command.Contract
		handler  command.HandlerFunc
	}{
		{echoContract(), echo},
		{mathSumContract(), mathSum},
		{tagsSaveContract(), tagsSave},
		{filesStashContract(), filesStash},
	}
	for _, b := range builtins {
		if err := reg.Register(b.contract, b.handler); err != nil {
			return fmt.Errorf("register %s: %w", b.contract.Name, err)
		}
	}
	return nil
}

func echoContract() *command.Contract {
	return &command.Contract{
		Name: "echo",
		Params: []command.Param{
			{Name: "message", Type: command.TypeString, Required: true},
		},
		Normalizers: map[string][]command.Normalizer{
			"message": {command.Strip()},
		},
		Rules: map[string][]command.Rule{
			"message": {command.NotBlank("message must not be blank")},
		},
	}
}

func echo(ctx context.Context, params map[string]any) (any, error) {
	return map[string]any{"message": params["message"]}, nil
}

func mathSumContract() *command.Contract {
	return &command.Contract{
		Name: "math.sum",
		Params: []command.Param{
			{Name: "values", Type: command.TypeNumberArray, Required: true},
		},
	}
}

func mathSum(ctx context.Context, params map[string]any) (any, error) {
	values := params["values"].([]float64)
	var sum float64
	for _, v := range values {
		sum += v
	}
	return map[string]any{"sum": sum, "count": len(values)}, nil
}

func tagsSaveContract() *command.Contract {
	return &command.Contract{
		Name:         "tags.save",
		AuthRequired: true,
		Permissions:  []string{"tags.write"},
		Params: []command.Param{
			{Name: "tags", Type: command.TypeStringArray, Required: true},
			{Name: "metadata", Type: command.TypeObject, Required: false},
		},
		Normalizers: map[string][]command.Normalizer{
			"tags": {command.Strip(), command.Lowercase()},
		},
	}
}

func tagsSave(ctx context.Context, params map[string]any) (any, error) {
	tags := params["tags"].([]string)
	result := map[string]any{"saved": len(tags), "tags": tags}
	if metadata, ok := params["metadata"]; ok {
		result["metadata"] = metadata
	}
	return result, nil
}

func filesStashContract() *command.Contract {
	return &command.Contract{
		Name:         "files.stash",
		AuthRequired: true,
		Params: []command.Param{
			{Name: "files", Type: command.TypeFileArray, Required: true},
			{Name: "manifest", Type: command.TypeBlob, Required: false},
		},
	}
}

func filesStash(ctx context.Context, params map[string]any) (any, error) {
	files := params["files"].([]*multipart.FileHeader)
	stashed := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		stashed = append(stashed, map[string]any{
			"filename": fh.Filename,
			"size":     fh.Size,
		})
	}
	result := map[string]any{"stashed": stashed, "count": len(files)}
	if manifest, ok := params["manifest"]; ok {
		result["manifest_bytes"] = len(manifest.([]byte))
	}
	return result, nil
}
