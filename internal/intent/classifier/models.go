// internal/intent/classifier/models.go
package classifier

// RawResult is the classifier's untrusted output, decoded as-is. Nothing in
// it is safe for dispatch until the resolver has validated and normalized it.
type RawResult struct {
	Intent              string                 `json:"intent"`
	NormalizedUtterance string                 `json:"normalizedUtterance"`
	Confidence          interface{}            `json:"confidence"`
	Params              map[string]interface{} `json:"params"`
}

// generateRequest is the wire shape of a generateContent call.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}
