package constant

// OperationStatus is the client-side lifecycle state of a library entry. It is never persisted.
type OperationStatus string

const (
	OperationStatusIdle                OperationStatus = "idle"
	OperationStatusDeleting            OperationStatus = "deleting"
	OperationStatusGeneratingSubtitles OperationStatus = "generatingSubtitles"
)

type Operation string

const (
	OperationDelete            Operation = "delete"
	OperationGenerateSubtitles Operation = "generateSubtitles"
)

// Status returns the in-flight status an operation puts its entry into.
func (o Operation) Status() OperationStatus {
	switch o {
	case OperationDelete:
		return OperationStatusDeleting
	case OperationGenerateSubtitles:
		return OperationStatusGeneratingSubtitles
	default:
		return OperationStatusIdle
	}
}

type SubtitleFormat string

const SubtitleFormatVTT SubtitleFormat = "vtt"

const (
	// MaxUploadBytes is the ceiling for a single video upload (100 MiB).
	MaxUploadBytes int64 = 100 << 20

	TranscriptionLanguage = "en"
)

const (
	NamespaceUploads    = "video-uploads"
	NamespaceSubtitles  = "video-subtitles"
	NamespaceThumbnails = "video-thumbnails"
)

type EventType string

const (
	EventVideoUploaded      EventType = "video.uploaded"
	EventSubtitlesGenerated EventType = "video.subtitles_generated"
	EventVideoDeleted       EventType = "video.deleted"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
