package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Message
		wantErr bool
	}{
		{
			name:    "join with username",
			payload: `{"type": "join", "username": "Alice"}`,
			want:    Join{Username: "Alice"},
		},
		{
			name:    "register alias with name field",
			payload: `{"type": "register", "name": "Bob"}`,
			want:    Join{Username: "Bob"},
		},
		{
			name:    "answer",
			payload: `{"type": "answer", "question_id": 3, "answer": 2, "username": "Alice"}`,
			want:    Answer{QuestionID: 3, Choice: 2, Username: "Alice"},
		},
		{
			name:    "answer with name alias",
			payload: `{"type": "answer", "question_id": 1, "answer": 4, "name": "Bob"}`,
			want:    Answer{QuestionID: 1, Choice: 4, Username: "Bob"},
		},
		{
			name:    "answer with id alias",
			payload: `{"type": "answer", "id": 5, "answer": 1, "username": "Alice"}`,
			want:    Answer{QuestionID: 5, Choice: 1, Username: "Alice"},
		},
		{
			name:    "leave",
			payload: `{"type": "leave", "username": "Alice"}`,
			want:    Leave{Username: "Alice"},
		},
		{
			name:    "username takes precedence over name",
			payload: `{"type": "join", "username": "Alice", "name": "Mallory"}`,
			want:    Join{Username: "Alice"},
		},
		{
			name:    "unknown type",
			payload: `{"type": "teleport"}`,
			wantErr: true,
		},
		{
			name:    "missing type",
			payload: `{"username": "Alice"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			payload: `{"type": "join",`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() returned an error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeUnknownTypeError(t *testing.T) {
	_, err := Decode([]byte(`{"type": "teleport"}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want map[string]interface{}
	}{
		{
			name: "welcome",
			msg:  Welcome{Message: "Welcome Alice! Get ready for the quiz!"},
			want: map[string]interface{}{
				"type":    "welcome",
				"message": "Welcome Alice! Get ready for the quiz!",
			},
		},
		{
			name: "question",
			msg: Question{
				ID:             1,
				Text:           "What is 2+2?",
				Options:        []string{"3", "4", "5", "6"},
				TimeLimit:      15,
				QuestionNumber: 1,
				TotalQuestions: 5,
			},
			want: map[string]interface{}{
				"type":            "question",
				"id":              float64(1),
				"text":            "What is 2+2?",
				"options":         []interface{}{"3", "4", "5", "6"},
				"time_limit":      float64(15),
				"question_number": float64(1),
				"total_questions": float64(5),
			},
		},
		{
			name: "leaderboard",
			msg:  Leaderboard{Scores: map[string]int{"Alice": 10}},
			want: map[string]interface{}{
				"type":   "leaderboard",
				"scores": map[string]interface{}{"Alice": float64(10)},
			},
		},
		{
			name: "timeout",
			msg:  Timeout{QuestionID: 4, Message: "Time's up!", CorrectAnswer: 2},
			want: map[string]interface{}{
				"type":           "timeout",
				"question_id":    float64(4),
				"message":        "Time's up!",
				"correct_answer": float64(2),
			},
		},
		{
			name: "question end with reveal results",
			msg: QuestionEnd{
				QuestionID:    4,
				Message:       "Question ended",
				CorrectAnswer: 2,
				Results:       []PlayerResult{{Name: "Ana", Choice: 2, Correct: true}},
				Scores:        map[string]int{"Ana": 10},
			},
			want: map[string]interface{}{
				"type":           "question_end",
				"question_id":    float64(4),
				"message":        "Question ended",
				"correct_answer": float64(2),
				"results": []interface{}{
					map[string]interface{}{"name": "Ana", "answer": float64(2), "correct": true},
				},
				"scores": map[string]interface{}{"Ana": float64(10)},
			},
		},
		{
			name: "game over",
			msg:  GameOver{Message: "Game over!", FinalScores: map[string]int{"Alice": 20, "Bob": 0}},
			want: map[string]interface{}{
				"type":         "game_over",
				"message":      "Game over!",
				"final_scores": map[string]interface{}{"Alice": float64(20), "Bob": float64(0)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("Encode() returned an error: %v", err)
			}
			if line[len(line)-1] != '\n' {
				t.Fatal("encoded message is not newline-terminated")
			}

			var got map[string]interface{}
			if err := json.Unmarshal(line, &got); err != nil {
				t.Fatalf("encoded message is not valid JSON: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
