package detect

import "testing"

func TestQuestionNoMarkReturnsNil(t *testing.T) {
	d := NewQuestionTypeDetector()

	if got := d.Detect("сегодня было тяжело на работе"); got != nil {
		t.Fatalf("expected nil for statement, got %+v", got)
	}
}

func TestQuestionRhetoricalBeatsClosed(t *testing.T) {
	d := NewQuestionTypeDetector()

	// "ну почему" is rhetorical and must win even though "да?" alone would
	// read as closed.
	got := d.Detect("Ну почему всё так сложно, да?")
	if got == nil {
		t.Fatal("expected classification")
	}
	if got.Type != QuestionRhetorical {
		t.Errorf("type = %s, want rhetorical", got.Type)
	}
	if got.Strategy != "validate_no_answer" {
		t.Errorf("strategy = %q, want validate_no_answer", got.Strategy)
	}
}

func TestQuestionEmotionalWhyIsRhetorical(t *testing.T) {
	d := NewQuestionTypeDetector()

	got := d.Detect("Я так устала, почему всегда я?")
	if got == nil || got.Type != QuestionRhetorical {
		t.Fatalf("expected rhetorical, got %+v", got)
	}
}

func TestQuestionClosed(t *testing.T) {
	d := NewQuestionTypeDetector()

	got := d.Detect("Он ведь изменится, правда?")
	if got == nil {
		t.Fatal("expected classification")
	}
	if got.Type != QuestionClosed {
		t.Errorf("type = %s, want closed", got.Type)
	}
	if got.Strategy != "brief_then_reflect" {
		t.Errorf("strategy = %q, want brief_then_reflect", got.Strategy)
	}
}

func TestQuestionOpen(t *testing.T) {
	d := NewQuestionTypeDetector()

	got := d.Detect("Не знаю что делать с этой ситуацией, что посоветуешь?")
	if got == nil {
		t.Fatal("expected classification")
	}
	if got.Type != QuestionOpen {
		t.Errorf("type = %s, want open", got.Type)
	}
	if got.Strategy != "detailed_with_examples" {
		t.Errorf("strategy = %q, want detailed_with_examples", got.Strategy)
	}
}

func TestQuestionDefaultsToOpen(t *testing.T) {
	d := NewQuestionTypeDetector()

	got := d.Detect("Любишь дождь?")
	if got == nil {
		t.Fatal("expected classification")
	}
	if got.Type != QuestionOpen {
		t.Errorf("unmatched question must default to open, got %s", got.Type)
	}
}

func TestQuestionUsesLastQuestionSentence(t *testing.T) {
	d := NewQuestionTypeDetector()

	got := d.Detect("Зачем он так? Вчера было нормально. Он изменится, правда?")
	if got == nil {
		t.Fatal("expected classification")
	}
	if got.Type != QuestionClosed {
		t.Errorf("type = %s, want closed (last question wins)", got.Type)
	}
	if got.Question != "он изменится, правда?" {
		t.Errorf("question = %q, want the last ?-sentence", got.Question)
	}
}
