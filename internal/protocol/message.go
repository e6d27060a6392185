// Package protocol defines the application messages exchanged between the
// quiz server and its clients, along with the framing rules for carrying
// them over stream and datagram transports.
//
// Every message is a single JSON object tagged with a "type" field. Stream
// transports delimit messages with a newline; a datagram may carry several
// newline-joined messages at once.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type identifies the kind of a wire message.
type Type string

const (
	TypeJoin        Type = "join"
	TypeRegister    Type = "register"
	TypeAnswer      Type = "answer"
	TypeLeave       Type = "leave"
	TypeWelcome     Type = "welcome"
	TypeError       Type = "error"
	TypeInfo        Type = "info"
	TypeQuestion    Type = "question"
	TypeResult      Type = "result"
	TypeWrongAnswer Type = "wrong_answer"
	TypeTimeout     Type = "timeout"
	TypeQuestionEnd Type = "question_end"
	TypeLeaderboard Type = "leaderboard"
	TypeGameOver    Type = "game_over"
)

// Message is implemented by every decoded wire message.
type Message interface {
	MessageType() Type
}

// Join is sent by a client to enter the game under a chosen name. Clients of
// the datagram dialect send it as "register" with a "name" field; both forms
// decode to this message.
type Join struct {
	Username string `json:"username"`
}

func (Join) MessageType() Type { return TypeJoin }

// Answer submits a 1-based choice for the identified question. The question
// id must match the currently open question or the answer is discarded.
type Answer struct {
	QuestionID int    `json:"question_id"`
	Choice     int    `json:"answer"`
	Username   string `json:"username,omitempty"`
}

func (Answer) MessageType() Type { return TypeAnswer }

// Leave announces that a client is quitting the game voluntarily.
type Leave struct {
	Username string `json:"username,omitempty"`
}

func (Leave) MessageType() Type { return TypeLeave }

// Welcome acknowledges a successful join.
type Welcome struct {
	Message string `json:"message"`
}

func (Welcome) MessageType() Type { return TypeWelcome }

// Error reports a rejected request. Stream transports close the connection
// after sending one in response to a failed join.
type Error struct {
	Message string `json:"message"`
}

func (Error) MessageType() Type { return TypeError }

// Info carries free-form lobby announcements, such as the game-start
// countdown or waiting-for-players notices.
type Info struct {
	Message string `json:"message"`
}

func (Info) MessageType() Type { return TypeInfo }

// Question opens an answer window. The ordinal fields let clients render
// progress ("question 2 of 5") without tracking state themselves.
type Question struct {
	ID             int      `json:"id"`
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	TimeLimit      int      `json:"time_limit"`
	QuestionNumber int      `json:"question_number"`
	TotalQuestions int      `json:"total_questions"`
}

func (Question) MessageType() Type { return TypeQuestion }

// Result announces a correct answer to all players. Every correct answer
// produces its own broadcast; FirstCorrect carries the answering player, a
// field name the dialect inherited.
type Result struct {
	QuestionID    int    `json:"question_id"`
	Message       string `json:"message"`
	CorrectAnswer int    `json:"correct_answer"`
	FirstCorrect  string `json:"first_correct"`
}

func (Result) MessageType() Type { return TypeResult }

// WrongAnswer is sent only to the player whose answer missed.
type WrongAnswer struct {
	QuestionID int    `json:"question_id"`
	Message    string `json:"message"`
}

func (WrongAnswer) MessageType() Type { return TypeWrongAnswer }

// Timeout closes a question that nobody answered.
type Timeout struct {
	QuestionID    int    `json:"question_id"`
	Message       string `json:"message"`
	CorrectAnswer int    `json:"correct_answer"`
}

func (Timeout) MessageType() Type { return TypeTimeout }

// PlayerResult reports how one player did on a question once its window has
// closed. A zero Choice means the player never answered.
type PlayerResult struct {
	Name    string `json:"name"`
	Choice  int    `json:"answer"`
	Correct bool   `json:"correct"`
}

// QuestionEnd closes a question that at least one player answered. Results
// carries every registered player's outcome, including answers that were held
// back for evaluation at the reveal.
type QuestionEnd struct {
	QuestionID    int            `json:"question_id"`
	Message       string         `json:"message"`
	CorrectAnswer int            `json:"correct_answer"`
	Results       []PlayerResult `json:"results,omitempty"`
	Scores        map[string]int `json:"scores,omitempty"`
}

func (QuestionEnd) MessageType() Type { return TypeQuestionEnd }

// Leaderboard is the point-in-time score snapshot broadcast after every
// scoring event and on every join.
type Leaderboard struct {
	Scores map[string]int `json:"scores"`
}

func (Leaderboard) MessageType() Type { return TypeLeaderboard }

// GameOver carries the final standings for a finished round.
type GameOver struct {
	Message     string         `json:"message"`
	FinalScores map[string]int `json:"final_scores"`
}

func (GameOver) MessageType() Type { return TypeGameOver }

// ErrUnknownType indicates a structurally valid message of a kind the
// server does not handle.
var ErrUnknownType = errors.New("unknown message type")

// envelope is the superset of fields a client may send. The dialect accepts
// a few aliases ("register" for "join", "name" for "username", "id" for
// "question_id") left over from the protocol's separate TCP and UDP
// ancestries.
type envelope struct {
	Type       Type   `json:"type"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	QuestionID int    `json:"question_id"`
	ID         int    `json:"id"`
	Answer     int    `json:"answer"`
}

// Decode parses one inbound payload into its typed message. Payloads that
// fail to parse or carry an unhandled type are reported as errors for the
// caller to log; a decode failure is never fatal to a connection.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	username := env.Username
	if username == "" {
		username = env.Name
	}
	questionID := env.QuestionID
	if questionID == 0 {
		questionID = env.ID
	}

	switch env.Type {
	case TypeJoin, TypeRegister:
		return Join{Username: username}, nil
	case TypeAnswer:
		return Answer{QuestionID: questionID, Choice: env.Answer, Username: username}, nil
	case TypeLeave:
		return Leave{Username: username}, nil
	case "":
		return nil, errors.New("message has no type field")
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
}

// Encode renders a message as a newline-terminated JSON line, the unit all
// transports send. The type tag is spliced in ahead of the message's own
// fields so the message structs stay free of tag bookkeeping.
func Encode(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s message: %w", m.MessageType(), err)
	}

	// Every Message is a struct, so body is always a JSON object.
	line := make([]byte, 0, len(body)+24)
	line = append(line, `{"type":"`...)
	line = append(line, string(m.MessageType())...)
	line = append(line, '"')
	if len(body) > 2 {
		line = append(line, ',')
	}
	line = append(line, body[1:]...)

	return append(line, '\n'), nil
}
