package domain

import (
	"errors"
	"fmt"
	"image"
)

// PipelinePhase is the position of a request inside the article pipeline.
type PipelinePhase int

const (
	PhaseStart PipelinePhase = iota
	PhaseClassified
	PhaseRetrieved
	PhaseEnriched
	PhaseStructured
	PhaseComposed
	PhaseDone
)

func (p PipelinePhase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseClassified:
		return "classified"
	case PhaseRetrieved:
		return "retrieved"
	case PhaseEnriched:
		return "enriched"
	case PhaseStructured:
		return "structured"
	case PhaseComposed:
		return "composed"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// RequestState is the per-request record threaded through the pipeline.
// Every field has one writer and is written once, in phase order; setters
// called out of order return ErrStateContract. A state must not be shared
// between requests.
type RequestState struct {
	phase    PipelinePhase
	image    image.Image
	imageOut bool

	species           *SpeciesPrediction
	internalKnowledge *string
	webKnowledge      *string
	synthesis         *SynthesisOutcome
	article           *string
}

// NewRequestState validates the entry image. A nil or empty image is
// rejected with ErrInvalidInput before any stage can run.
func NewRequestState(img image.Image) (*RequestState, error) {
	if img == nil {
		return nil, WrapError(ErrInvalidInput, "new request state", errors.New("image is required"))
	}
	if img.Bounds().Empty() {
		return nil, WrapError(ErrInvalidInput, "new request state", errors.New("image has no pixels"))
	}
	return &RequestState{phase: PhaseStart, image: img}, nil
}

func (s *RequestState) Phase() PipelinePhase { return s.phase }

// TakeImage hands the image to the classifier. The state drops its
// reference, so the image can be read only once.
func (s *RequestState) TakeImage() (image.Image, error) {
	if err := s.expect(PhaseStart, "take image"); err != nil {
		return nil, err
	}
	if s.imageOut {
		return nil, WrapError(ErrStateContract, "take image", errors.New("image already released"))
	}
	img := s.image
	s.image = nil
	s.imageOut = true
	return img, nil
}

// HasImage reports whether the state still holds the entry image.
func (s *RequestState) HasImage() bool { return s.image != nil }

func (s *RequestState) SetSpecies(p SpeciesPrediction) error {
	if err := s.expectReleased("write species"); err != nil {
		return err
	}
	s.species = &p
	s.phase = PhaseClassified
	return nil
}

// SetClassificationFailed moves a request whose species is unknown straight
// to the structured phase with an absent record.
func (s *RequestState) SetClassificationFailed(cause error) error {
	if err := s.expectReleased("write species"); err != nil {
		return err
	}
	outcome := SynthesisFailed(string(FallbackClassifyFailed), cause)
	s.synthesis = &outcome
	s.phase = PhaseStructured
	return nil
}

func (s *RequestState) Species() (SpeciesPrediction, bool) {
	if s.species == nil {
		return SpeciesPrediction{}, false
	}
	return *s.species, true
}

func (s *RequestState) SetInternalKnowledge(text string) error {
	if err := s.expect(PhaseClassified, "write internal_knowledge"); err != nil {
		return err
	}
	s.internalKnowledge = &text
	s.phase = PhaseRetrieved
	return nil
}

func (s *RequestState) InternalKnowledge() string {
	if s.internalKnowledge == nil {
		return ""
	}
	return *s.internalKnowledge
}

func (s *RequestState) SetWebKnowledge(text string) error {
	if err := s.expect(PhaseRetrieved, "write web_knowledge"); err != nil {
		return err
	}
	s.webKnowledge = &text
	s.phase = PhaseEnriched
	return nil
}

func (s *RequestState) WebKnowledge() string {
	if s.webKnowledge == nil {
		return ""
	}
	return *s.webKnowledge
}

func (s *RequestState) SetSynthesis(outcome SynthesisOutcome) error {
	if err := s.expect(PhaseEnriched, "write care_record"); err != nil {
		return err
	}
	s.synthesis = &outcome
	s.phase = PhaseStructured
	return nil
}

// Synthesis returns the synthesizer outcome; before the structured phase it
// reports an absent record.
func (s *RequestState) Synthesis() SynthesisOutcome {
	if s.synthesis == nil {
		return SynthesisFailed("not_synthesized", nil)
	}
	return *s.synthesis
}

func (s *RequestState) SetArticle(text string) error {
	if err := s.expect(PhaseStructured, "write article_text"); err != nil {
		return err
	}
	if text == "" {
		return WrapError(ErrStateContract, "set article_text", errors.New("article must not be empty"))
	}
	s.article = &text
	s.phase = PhaseComposed
	return nil
}

// TakeArticle extracts the terminal output and closes the state.
func (s *RequestState) TakeArticle() (string, error) {
	if err := s.expect(PhaseComposed, "take article_text"); err != nil {
		return "", err
	}
	s.phase = PhaseDone
	return *s.article, nil
}

func (s *RequestState) expect(phase PipelinePhase, op string) error {
	if s.phase != phase {
		return WrapError(
			ErrStateContract,
			op,
			fmt.Errorf("state is %s, expected %s", s.phase, phase),
		)
	}
	return nil
}

func (s *RequestState) expectReleased(op string) error {
	if err := s.expect(PhaseStart, op); err != nil {
		return err
	}
	if !s.imageOut {
		return WrapError(ErrStateContract, op, errors.New("image was not handed to the classifier"))
	}
	return nil
}
