package types

// SourceLocation points at the source file that rendered an element.
type SourceLocation struct {
	FileName   string
	LineNumber int
}

// SourceFrame is one entry of an element's resolved render stack.
// Source may be nil when a frame could not be mapped back to a file.
type SourceFrame struct {
	ComponentName string
	Source        *SourceLocation
}

// FirstLocatedFrame returns the first frame carrying a source location,
// or nil if none of the frames resolved.
func FirstLocatedFrame(frames []SourceFrame) *SourceFrame {
	for i := range frames {
		if frames[i].Source != nil {
			return &frames[i]
		}
	}
	return nil
}
