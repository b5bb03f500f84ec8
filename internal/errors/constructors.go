package errors

// Convenience constructors for the failure conditions named by the compiler.

// Configuration errors

func NewUnknownDataSource(name string) *BuildError {
	return Wrap(ErrUnknownDataSource, CategoryConfig, SeverityFatal, "no data source registered under this name").
		WithContext("data_source", name)
}

func NewUnknownRouter(name string) *BuildError {
	return Wrap(ErrUnknownRouter, CategoryConfig, SeverityFatal, "no router registered under this name").
		WithContext("router", name)
}

func ConfigNotFound(path string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

// Resolution errors: fatal to the item rep being compiled, not the whole run.

func NewUnknownFilter(name string) *BuildError {
	return Wrap(ErrUnknownFilter, CategoryResolution, SeverityError, "no filter registered under this name").
		WithContext("filter", name)
}

func NewUnknownLayout(identifier string) *BuildError {
	return Wrap(ErrUnknownLayout, CategoryResolution, SeverityError, "no layout with this identifier").
		WithContext("layout", identifier)
}

// NewNoCompileRule signals that no compile rule matches an item rep.
func NewNoCompileRule(item, rep string) *BuildError {
	return New(CategoryResolution, SeverityError, "no compile rule matches this representation").
		WithContext("item", item).
		WithContext("rep", rep)
}

// RoutingFailed wraps a router error for one representation.
func RoutingFailed(item, rep string, cause error) *BuildError {
	return Wrap(cause, CategoryResolution, SeverityError, "routing failed").
		WithContext("item", item).
		WithContext("rep", rep)
}

func NewBinaryFilterMismatch(filter, item, rep string) *BuildError {
	return Wrap(ErrBinaryFilter, CategoryFilter, SeverityError, "binary content routed through a textual filter").
		WithContext("filter", filter).
		WithContext("item", item).
		WithContext("rep", rep)
}

// FilterFailed wraps a filter implementation error, noting which item rep and
// which step failed. The cause is carried unchanged.
func FilterFailed(filter, item, rep string, cause error) *BuildError {
	return Wrap(cause, CategoryFilter, SeverityError, "filter execution failed").
		WithContext("filter", filter).
		WithContext("item", item).
		WithContext("rep", rep)
}

// Data source and script errors

func DataSourceFailed(name string, cause error) *BuildError {
	return Wrap(cause, CategoryDataSource, SeverityFatal, "data source failed").
		WithContext("data_source", name)
}

func ScriptFailed(filename string, cause error) *BuildError {
	return Wrap(cause, CategoryScript, SeverityFatal, "code snippet execution failed").
		WithContext("snippet", filename)
}

// Output errors

func WriteFailed(path string, cause error) *BuildError {
	return Wrap(cause, CategoryIO, SeverityError, "writing compiled content failed").
		WithContext("path", path)
}

// Internal errors

func InternalError(message string, cause error) *BuildError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
