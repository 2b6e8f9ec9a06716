package api

const (
	// MaxUploadSize limits multipart upload bodies (PDFs, covers, photos).
	MaxUploadSize = 100 << 20 // 100 MB

	// multipartMemory is how much of a multipart body is held in memory
	// before spilling to temp files.
	multipartMemory = 10 << 20 // 10 MB
)
