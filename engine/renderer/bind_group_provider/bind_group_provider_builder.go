package bind_group_provider

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithEntry declares the kind of resource the provider holds at a binding index.
//
// Parameters:
//   - binding: the binding index
//   - kind: the resource kind
//
// Returns:
//   - BindGroupProviderOption: a function that declares the entry on the provider
func WithEntry(binding int, kind BindingKind) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.entries[binding] = kind
	}
}

// WithEntries declares several entries at once.
//
// Parameters:
//   - entries: binding kinds keyed by binding index
//
// Returns:
//   - BindGroupProviderOption: a function that declares every entry on the provider
func WithEntries(entries map[int]BindingKind) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		for b, k := range entries {
			p.entries[b] = k
		}
	}
}

// WithIndexCount sets the number of indices drawn for a mesh provider.
//
// Parameters:
//   - count: the index count
//
// Returns:
//   - BindGroupProviderOption: a function that sets the index count
func WithIndexCount(count int) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.indexCount = count
	}
}
