package bind_group_provider

// BufferWrite describes a pending write into one of a provider's buffers.
// Writes are collected per frame and flushed in a single batch by the
// renderer.
type BufferWrite struct {
	// Provider is the provider owning the target buffer.
	Provider BindGroupProvider
	// Binding is the binding index of the target buffer.
	Binding int
	// Offset is the byte offset into the target buffer.
	Offset uint64
	// Data is the raw bytes to write.
	Data []byte
}
