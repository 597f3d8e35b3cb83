package filevalidator

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestContentValidatorRegistry(t *testing.T) {
	registry := NewContentValidatorRegistry()
	first := &stubContentValidator{types: []string{"application/test"}}
	registry.Register("application/test", first)

	if registry.GetValidator("application/test") != first {
		t.Error("expected the registered validator back")
	}
	if registry.GetValidator("application/unknown") != nil {
		t.Error("expected nil for an unregistered MIME type")
	}
	if !registry.HasValidator("application/test") {
		t.Error("expected HasValidator to see the binding")
	}
	if registry.Count() != 1 {
		t.Errorf("expected 1 binding, got %d", registry.Count())
	}

	// A second Register under the same type replaces the binding.
	second := &stubContentValidator{types: []string{"application/test"}}
	registry.Register("application/test", second)
	if registry.GetValidator("application/test") != second || registry.Count() != 1 {
		t.Error("expected re-registration to replace, not add")
	}
}

func TestContentValidatorRegistryRegisterAll(t *testing.T) {
	registry := NewContentValidatorRegistry()
	registry.RegisterAll(&stubContentValidator{
		types: []string{"application/a", "application/b"},
	})

	if registry.Count() != 2 {
		t.Errorf("expected both supported types registered, got %d", registry.Count())
	}
	if got := registry.RegisteredMIMETypes(); len(got) != 2 || got[0] != "application/a" || got[1] != "application/b" {
		t.Errorf("expected a sorted type listing, got %v", got)
	}
}

func TestContentValidatorRegistryValidateContent(t *testing.T) {
	registry := NewContentValidatorRegistry()

	var sawSize int64
	registry.Register("application/test", &stubContentValidator{
		types: []string{"application/test"},
		validate: func(r io.Reader, size int64) error {
			sawSize = size
			return nil
		},
	})

	reader := bytes.NewReader([]byte("test content"))
	if err := registry.ValidateContent("application/test", reader, 12); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if sawSize != 12 {
		t.Errorf("expected the validator to receive size 12, got %d", sawSize)
	}

	// Unregistered types pass.
	if err := registry.ValidateContent("application/unknown", reader, 12); err != nil {
		t.Errorf("unexpected error for unregistered type: %v", err)
	}

	// Failures propagate.
	registry.Register("application/bad", &stubContentValidator{
		types: []string{"application/bad"},
		validate: func(io.Reader, int64) error {
			return errors.New("structure check failed")
		},
	})
	if err := registry.ValidateContent("application/bad", reader, 12); err == nil {
		t.Error("expected validator failure to propagate")
	}
}

func TestContentValidatorRegistryClone(t *testing.T) {
	registry := NewContentValidatorRegistry()
	registry.Register("application/test", &stubContentValidator{})

	clone := registry.Clone()
	clone.Register("application/extra", &stubContentValidator{})

	if registry.HasValidator("application/extra") {
		t.Error("mutating a clone must not affect the original")
	}
	if !clone.HasValidator("application/test") {
		t.Error("clone must carry the original's bindings")
	}
}

// stubContentValidator lets tests script a validator's behavior.
type stubContentValidator struct {
	types    []string
	validate func(r io.Reader, size int64) error
}

func (s *stubContentValidator) ValidateContent(r io.Reader, size int64) error {
	if s.validate == nil {
		return nil
	}
	return s.validate(r, size)
}

func (s *stubContentValidator) SupportedMIMETypes() []string { return s.types }
