package filevalidator

import "sync"

// DefaultRegistry returns a registry with all built-in validators registered.
// Validators are struct pointers in a map; lookup is O(1) and unregistered
// types cost nothing.
func DefaultRegistry() *ContentValidatorRegistry {
	registry := NewContentValidatorRegistry()

	registry.RegisterAll(DefaultPDFValidator())
	registry.RegisterAll(DefaultOfficeValidator())
	registry.RegisterAll(DefaultImageValidator())
	registry.RegisterAll(DefaultJSONValidator())
	registry.RegisterAll(DefaultXMLValidator())
	registry.RegisterAll(DefaultCSVValidator())
	registry.RegisterAll(DefaultPlainTextValidator())

	return registry
}

// DocumentRegistry returns a registry covering the document intake formats:
// PDFs, Office documents, and the scanned-image types.
func DocumentRegistry() *ContentValidatorRegistry {
	registry := NewContentValidatorRegistry()

	registry.RegisterAll(DefaultPDFValidator())
	registry.RegisterAll(DefaultOfficeValidator())
	registry.RegisterAll(DefaultImageValidator())

	return registry
}

// ImageOnlyRegistry returns a registry covering only the image formats.
func ImageOnlyRegistry() *ContentValidatorRegistry {
	registry := NewContentValidatorRegistry()
	registry.RegisterAll(DefaultImageValidator())
	return registry
}

// MinimalRegistry returns a registry covering only the highest-risk
// formats, PDFs and images, for callers that want the smallest
// validator set.
func MinimalRegistry() *ContentValidatorRegistry {
	registry := NewContentValidatorRegistry()

	registry.RegisterAll(DefaultPDFValidator())
	registry.RegisterAll(DefaultImageValidator())

	return registry
}

var (
	globalRegistry     *ContentValidatorRegistry
	globalRegistryOnce sync.Once
)

// GetDefaultRegistry returns the process-wide registry, built on first
// use.
func GetDefaultRegistry() *ContentValidatorRegistry {
	globalRegistryOnce.Do(func() {
		globalRegistry = DefaultRegistry()
	})
	return globalRegistry
}
