package domain

// GeneratedFile is one emitted source file. Filename is relative to the
// bundle root and uses forward slashes.
type GeneratedFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// GeneratedBundle is the generator's output: a set of named text files plus
// the designated entry file. Entrypoint always matches the Filename of
// exactly one file in Files; filenames are unique.
type GeneratedBundle struct {
	Entrypoint string          `json:"entrypoint"`
	Files      []GeneratedFile `json:"files"`
}

// File returns the file with the given name, or nil.
func (b *GeneratedBundle) File(name string) *GeneratedFile {
	for i := range b.Files {
		if b.Files[i].Filename == name {
			return &b.Files[i]
		}
	}
	return nil
}
