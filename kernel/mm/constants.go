package mm

const (
	// PointerShift is equal to log2 of the amd64 pointer size. Page table
	// entries are (1 << PointerShift) bytes wide.
	PointerShift = uintptr(3)

	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert a physical address to a page number (shift right by PageShift)
	// and vice-versa.
	PageShift = uintptr(12)

	// PageSize defines the system's page size in bytes.
	PageSize = uintptr(1 << PageShift)
)
