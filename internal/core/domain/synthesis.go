package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// SynthesisRequest is the input to position synthesis.
type SynthesisRequest struct {
	// Party is the party the document belongs to.
	Party Party

	// Category is the analysis dimension.
	Category Category

	// Chunks are the retrieved chunks in retriever order.
	Chunks []RetrievedChunk
}

// SynthesisResult is the structured output of a synthesis call.
// Optional text fields are empty when the model returned null.
type SynthesisResult struct {
	Summary          string
	KeyProposals     []string
	IdeologyPosition string
	BudgetMentioned  string
	ConfidenceScore  *float64
}

// Synthesis is a validated result plus generation metadata.
type Synthesis struct {
	Result        SynthesisResult
	Usage         TokenUsage
	CostUSD       float64
	Model         string
	RawResponse   string
	Attempts      int
	ChunksUsed    int
	AvgSimilarity float64
}

type synthesisWire struct {
	Summary          *string   `json:"summary"`
	KeyProposals     *[]string `json:"key_proposals"`
	IdeologyPosition *string   `json:"ideology_position"`
	BudgetMentioned  *string   `json:"budget_mentioned"`
	ConfidenceScore  *float64  `json:"confidence_score"`
}

// ParseSynthesisResult decodes a model response into a SynthesisResult.
// Unknown fields are ignored; wrong types, a missing summary or proposal
// list, or trailing data are rejected with ErrMalformedResponse.
func ParseSynthesisResult(raw string) (SynthesisResult, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return SynthesisResult{}, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	var w synthesisWire
	if err := dec.Decode(&w); err != nil {
		return SynthesisResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return SynthesisResult{}, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedResponse)
	}

	if w.Summary == nil || strings.TrimSpace(*w.Summary) == "" {
		return SynthesisResult{}, fmt.Errorf("%w: summary is required", ErrMalformedResponse)
	}
	if w.KeyProposals == nil {
		return SynthesisResult{}, fmt.Errorf("%w: key_proposals is required", ErrMalformedResponse)
	}
	if w.ConfidenceScore != nil && (*w.ConfidenceScore < 0 || *w.ConfidenceScore > 1) {
		return SynthesisResult{}, fmt.Errorf("%w: confidence_score %v outside [0, 1]", ErrMalformedResponse, *w.ConfidenceScore)
	}

	res := SynthesisResult{
		Summary:         strings.TrimSpace(*w.Summary),
		KeyProposals:    make([]string, 0, len(*w.KeyProposals)),
		ConfidenceScore: w.ConfidenceScore,
	}
	for i, p := range *w.KeyProposals {
		p = strings.TrimSpace(p)
		if p == "" {
			return SynthesisResult{}, fmt.Errorf("%w: key_proposals[%d] is empty", ErrMalformedResponse, i)
		}
		res.KeyProposals = append(res.KeyProposals, p)
	}
	if w.IdeologyPosition != nil {
		res.IdeologyPosition = strings.TrimSpace(*w.IdeologyPosition)
	}
	if w.BudgetMentioned != nil {
		res.BudgetMentioned = strings.TrimSpace(*w.BudgetMentioned)
	}
	return res, nil
}

// stripCodeFence removes a single markdown code fence around a JSON body.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var (
	citationPattern = regexp.MustCompile(`\[P[áa]ginas?\s+([^\]]+)\]`)
	pageNumber      = regexp.MustCompile(`\d+`)
)

// CitedPages returns every page number cited as [Página N] in text.
// Lists and ranges inside one bracket ("[Páginas 3, 5]") yield each number.
func CitedPages(text string) []int {
	var pages []int
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		for _, n := range pageNumber.FindAllString(m[1], -1) {
			v, err := strconv.Atoi(n)
			if err == nil {
				pages = append(pages, v)
			}
		}
	}
	return pages
}

// CheckCitations verifies that every proposal cites a supplied page, that
// the summary cites one unless there are no proposals, and that no citation
// points at a page outside the supplied set.
func (r SynthesisResult) CheckCitations(pages []int) error {
	allowed := make(map[int]bool, len(pages))
	for _, p := range pages {
		allowed[p] = true
	}

	check := func(field, text string, required bool) error {
		cited := CitedPages(text)
		if len(cited) == 0 {
			if required {
				return fmt.Errorf("%w: %s has no [Página N] citation", ErrMissingCitation, field)
			}
			return nil
		}
		for _, p := range cited {
			if !allowed[p] {
				return fmt.Errorf("%w: %s cites page %d which was not retrieved", ErrMissingCitation, field, p)
			}
		}
		return nil
	}

	if err := check("summary", r.Summary, len(r.KeyProposals) > 0); err != nil {
		return err
	}
	for i, p := range r.KeyProposals {
		if err := check(fmt.Sprintf("key_proposals[%d]", i), p, true); err != nil {
			return err
		}
	}
	return nil
}

// MarshalProposals encodes proposals for storage as a JSON array.
func MarshalProposals(proposals []string) (string, error) {
	if proposals == nil {
		proposals = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(proposals); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// UnmarshalProposals decodes a stored JSON array of proposals.
func UnmarshalProposals(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
