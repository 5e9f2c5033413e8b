package domain

import (
	"image"
	"testing"
)

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func TestNewRequestStateRejectsMissingImage(t *testing.T) {
	if _, err := NewRequestState(nil); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for nil image, got %v", err)
	}
	if _, err := NewRequestState(image.NewRGBA(image.Rect(0, 0, 0, 0))); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty image, got %v", err)
	}
}

func TestRequestStateFollowsPhaseOrder(t *testing.T) {
	state, err := NewRequestState(testImage())
	if err != nil {
		t.Fatalf("NewRequestState() error = %v", err)
	}

	if _, err := state.TakeImage(); err != nil {
		t.Fatalf("TakeImage() error = %v", err)
	}
	if state.HasImage() {
		t.Fatalf("image must be released after hand-off")
	}
	if err := state.SetSpecies(SpeciesPrediction{Label: "mango", Confidence: 0.9}); err != nil {
		t.Fatalf("SetSpecies() error = %v", err)
	}
	if err := state.SetInternalKnowledge("mango likes sun"); err != nil {
		t.Fatalf("SetInternalKnowledge() error = %v", err)
	}
	if err := state.SetWebKnowledge("web"); err != nil {
		t.Fatalf("SetWebKnowledge() error = %v", err)
	}
	if err := state.SetSynthesis(SynthesisFailed("provider_error", nil)); err != nil {
		t.Fatalf("SetSynthesis() error = %v", err)
	}
	if err := state.SetArticle(ApologyArticle); err != nil {
		t.Fatalf("SetArticle() error = %v", err)
	}
	article, err := state.TakeArticle()
	if err != nil {
		t.Fatalf("TakeArticle() error = %v", err)
	}
	if article != ApologyArticle || state.Phase() != PhaseDone {
		t.Fatalf("unexpected terminal state: %q %s", article, state.Phase())
	}
}

func TestRequestStateRejectsOutOfOrderWrites(t *testing.T) {
	state, err := NewRequestState(testImage())
	if err != nil {
		t.Fatalf("NewRequestState() error = %v", err)
	}

	if err := state.SetSpecies(SpeciesPrediction{Label: "kale"}); !IsKind(err, ErrStateContract) {
		t.Fatalf("species before image hand-off must fail, got %v", err)
	}
	if err := state.SetWebKnowledge("web"); !IsKind(err, ErrStateContract) {
		t.Fatalf("web knowledge before classification must fail, got %v", err)
	}

	_, _ = state.TakeImage()
	if _, err := state.TakeImage(); !IsKind(err, ErrStateContract) {
		t.Fatalf("second TakeImage must fail, got %v", err)
	}
	_ = state.SetSpecies(SpeciesPrediction{Label: "kale"})
	if err := state.SetSpecies(SpeciesPrediction{Label: "corn"}); !IsKind(err, ErrStateContract) {
		t.Fatalf("species must be written once, got %v", err)
	}
	if got, _ := state.Species(); got.Label != "kale" {
		t.Fatalf("species overwritten: %s", got.Label)
	}
}

func TestRequestStateClassificationFailureSkipsToStructured(t *testing.T) {
	state, _ := NewRequestState(testImage())
	_, _ = state.TakeImage()

	if err := state.SetClassificationFailed(nil); err != nil {
		t.Fatalf("SetClassificationFailed() error = %v", err)
	}
	if state.Phase() != PhaseStructured {
		t.Fatalf("expected structured phase, got %s", state.Phase())
	}
	if state.Synthesis().Produced() {
		t.Fatalf("expected absent record")
	}
	if state.Synthesis().Reason() != string(FallbackClassifyFailed) {
		t.Fatalf("unexpected reason %q", state.Synthesis().Reason())
	}
}

func TestSetArticleRejectsEmptyText(t *testing.T) {
	state, _ := NewRequestState(testImage())
	_, _ = state.TakeImage()
	_ = state.SetClassificationFailed(nil)

	if err := state.SetArticle(""); !IsKind(err, ErrStateContract) {
		t.Fatalf("expected ErrStateContract, got %v", err)
	}
}
