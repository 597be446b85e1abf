package constants

// Routing is the downstream decision attached to every response.
type Routing string

// Stable values (consumers match on these exact strings).
const (
	RoutingAccept Routing = "ACCEPT" // confident enough for automated use
	RoutingReview Routing = "REVIEW" // usable, needs a human look
	RoutingReject Routing = "REJECT" // nothing usable; manual entry
)

// Default routing thresholds on overall confidence.
const (
	DefaultAcceptThreshold = 0.85
	DefaultReviewThreshold = 0.50
)

// EngineNone is the selected engine when no backend produced usable text.
const EngineNone = "none"

// Engine names. Each one is a member of the closed backend set.
const (
	EngineTesseract   = "tesseract"
	EngineGosseract   = "gosseract"
	EngineDocumentAI  = "documentai"
	EngineGemini      = "gemini"
	EngineOpenAI      = "openai"
	EngineFallback    = "tesseract-basic"
	EngineUnavailable = "unavailable"
)

// PrimaryEngines lists the non-fallback backends in registration order.
var PrimaryEngines = []string{
	EngineTesseract,
	EngineGosseract,
	EngineDocumentAI,
	EngineGemini,
	EngineOpenAI,
}
