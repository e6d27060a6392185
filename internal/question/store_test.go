package question

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/go-test/deep"
	"github.com/google/go-cmp/cmp"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setUpDatabase(t *testing.T) *gorm.DB {
	t.Helper()

	testDBFile := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(testDBFile), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("error initializing test database: %s", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		t.Fatalf("error migrating test database: %s", err)
	}
	return db
}

func testBank() []Question {
	return []Question{
		{ID: 1, Text: "What is 2+2?", Options: []string{"3", "4", "5", "6"}, Correct: 2},
		{ID: 2, Text: "Capital of France?", Options: []string{"London", "Berlin", "Paris", "Madrid"}, Correct: 3},
	}
}

func TestCreateAndFindQuestion(t *testing.T) {
	db := setUpDatabase(t)

	q := Question{Text: "What is 2+2?", Options: []string{"3", "4", "5", "6"}, Correct: 2}
	if err := CreateQuestion(db, &q); err != nil {
		t.Fatalf("CreateQuestion() returned an error: %v", err)
	}
	if q.ID == 0 {
		t.Fatal("CreateQuestion() did not assign an id")
	}

	found, err := FindQuestionByID(db, q.ID)
	if err != nil {
		t.Fatalf("FindQuestionByID() returned an error: %v", err)
	}
	if found == nil {
		t.Fatal("FindQuestionByID() did not find the created question")
	}
	if diff := cmp.Diff(q, *found); diff != "" {
		t.Errorf("question mismatch (-want +got):\n%s", diff)
	}
}

func TestFindQuestionByIDNoMatch(t *testing.T) {
	db := setUpDatabase(t)

	found, err := FindQuestionByID(db, 42)
	if err != nil {
		t.Fatalf("FindQuestionByID() returned an error: %v", err)
	}
	if found != nil {
		t.Errorf("expected no match, got %+v", found)
	}
}

func TestCreateQuestionRejectsInvalid(t *testing.T) {
	db := setUpDatabase(t)

	q := Question{Text: "Q", Options: []string{"a", "b"}, Correct: 1}
	if err := CreateQuestion(db, &q); err == nil {
		t.Error("expected a validation error")
	}
}

func TestAllQuestionsOrderedByID(t *testing.T) {
	db := setUpDatabase(t)

	out := []Question{
		{ID: 3, Text: "Third?", Options: []string{"a", "b", "c", "d"}, Correct: 1},
		{ID: 1, Text: "First?", Options: []string{"a", "b", "c", "d"}, Correct: 2},
		{ID: 2, Text: "Second?", Options: []string{"a", "b", "c", "d"}, Correct: 3},
	}
	for i := range out {
		if err := CreateQuestion(db, &out[i]); err != nil {
			t.Fatalf("CreateQuestion() returned an error: %v", err)
		}
	}

	questions, err := AllQuestions(db)
	if err != nil {
		t.Fatalf("AllQuestions() returned an error: %v", err)
	}

	var ids []int
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	if diff := deep.Equal([]int{1, 2, 3}, ids); diff != nil {
		t.Errorf("unexpected ordering: %v", diff)
	}
}

func TestImportQuestionsSkipsDuplicates(t *testing.T) {
	db := setUpDatabase(t)

	imported, skipped, err := ImportQuestions(db, testBank())
	if err != nil {
		t.Fatalf("ImportQuestions() returned an error: %v", err)
	}
	if imported != 2 || skipped != 0 {
		t.Fatalf("first import: got imported=%d skipped=%d, want 2/0", imported, skipped)
	}

	again := append(testBank(), Question{
		Text: "Largest planet?", Options: []string{"Earth", "Jupiter", "Mars", "Venus"}, Correct: 2,
	})
	imported, skipped, err = ImportQuestions(db, again)
	if err != nil {
		t.Fatalf("ImportQuestions() returned an error: %v", err)
	}
	if imported != 1 || skipped != 2 {
		t.Fatalf("second import: got imported=%d skipped=%d, want 1/2", imported, skipped)
	}

	count, err := CountQuestions(db)
	if err != nil {
		t.Fatalf("CountQuestions() returned an error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 questions in the bank, got %d", count)
	}
}

func TestDeleteQuestion(t *testing.T) {
	db := setUpDatabase(t)

	q := testBank()[0]
	if err := CreateQuestion(db, &q); err != nil {
		t.Fatalf("CreateQuestion() returned an error: %v", err)
	}

	deleted, err := DeleteQuestion(db, q.ID)
	if err != nil {
		t.Fatalf("DeleteQuestion() returned an error: %v", err)
	}
	if !deleted {
		t.Error("expected the question to be deleted")
	}

	deleted, err = DeleteQuestion(db, q.ID)
	if err != nil {
		t.Fatalf("DeleteQuestion() returned an error: %v", err)
	}
	if deleted {
		t.Error("expected the second delete to be a no-op")
	}
}
