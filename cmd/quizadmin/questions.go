// This script is a small convenience tool for managing the question bank in
// the configured server database.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Moatez-69/quiznet-tcp-udp/internal/core"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/question"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Question bank management tools",
}

var questionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists every question in the bank",
	Run:   QuestionsListCommand,
}

var questionsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Adds a question to the bank",
	Run:   QuestionsAddCommand,
}

var questionsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Deletes a question from the bank",
	Run:   QuestionsDeleteCommand,
}

var questionsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Imports a question file into the bank",
	Run:   QuestionsImportCommand,
}

func initDB() *gorm.DB {
	cfg := core.LoadConfig(ConfigFlag)
	db, err := question.Open(cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return db
}

func closeDB(db *gorm.DB) {
	if err := question.Close(db); err != nil {
		fmt.Println(err)
	}
}

func QuestionsListCommand(cmd *cobra.Command, args []string) {
	db := initDB()
	defer closeDB(db)

	questions, err := question.AllQuestions(db)
	if err != nil {
		fmt.Println("error listing questions:", err)
		return
	}
	if len(questions) == 0 {
		fmt.Println("the question bank is empty")
		return
	}

	for _, q := range questions {
		fmt.Printf("%d: %s\n", q.ID, q.Text)
		for i, option := range q.Options {
			marker := " "
			if i+1 == q.Correct {
				marker = "*"
			}
			fmt.Printf("  %s %d. %s\n", marker, i+1, option)
		}
	}
}

func QuestionsAddCommand(cmd *cobra.Command, args []string) {
	db := initDB()
	defer closeDB(db)

	var q question.Question
	q.Text, args = popArg(args, "Question")
	for i := 1; i <= question.OptionCount; i++ {
		var option string
		option, args = popArg(args, fmt.Sprintf("Option %d", i))
		q.Options = append(q.Options, option)
	}

	correctInput, _ := popArg(args, "Correct option (1-4)")
	correct, err := strconv.Atoi(strings.TrimSpace(correctInput))
	if err != nil {
		fmt.Println("the correct option must be a number between 1 and 4")
		return
	}
	q.Correct = correct

	if err := question.CreateQuestion(db, &q); err != nil {
		fmt.Println("error creating question:", err)
		return
	}
	fmt.Printf("created question %d\n", q.ID)
}

func QuestionsDeleteCommand(cmd *cobra.Command, args []string) {
	db := initDB()
	defer closeDB(db)

	idInput, _ := popArg(args, "Question ID")
	id, err := strconv.Atoi(strings.TrimSpace(idInput))
	if err != nil {
		fmt.Println("the question id must be a number")
		return
	}

	deleted, err := question.DeleteQuestion(db, id)
	if err != nil {
		fmt.Println("error deleting question:", err)
		return
	}
	if !deleted {
		fmt.Printf("no question with id %d\n", id)
		return
	}
	fmt.Println("deleted question")
}

func QuestionsImportCommand(cmd *cobra.Command, args []string) {
	db := initDB()
	defer closeDB(db)

	path, _ := popArg(args, "Question file")
	questions, skipped, err := question.LoadFile(path)
	if err != nil {
		fmt.Println("error reading question file:", err)
		return
	}
	if skipped > 0 {
		fmt.Printf("skipped %d malformed entries in %s\n", skipped, path)
	}

	imported, existing, err := question.ImportQuestions(db, questions)
	if err != nil {
		fmt.Println("error importing questions:", err)
		return
	}
	fmt.Printf("imported %d questions (%d already in the bank)\n", imported, existing)
}

func popArg(args []string, prompt string) (string, []string) {
	if len(args) == 1 {
		return args[0], nil
	} else if len(args) > 1 {
		return args[0], args[1:]
	}

	fmt.Printf("%s: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return scanner.Text(), args
}
