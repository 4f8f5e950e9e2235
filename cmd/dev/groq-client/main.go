// Smoke test for the Groq chat backend. Needs GROQ_API_KEY set.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/prepdeck/backend/internal/llm"
	"github.com/prepdeck/backend/pkg/groq"
)

func main() {
	ctx := context.Background()

	cfg := groq.DefaultConfig()
	cfg.APIKey = os.Getenv("GROQ_API_KEY")

	client, err := groq.NewDefaultClient(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	out, err := client.Generate(ctx,
		`Generate 3 interview questions for a Backend Engineer. Format the output as a JSON array of strings.`,
		llm.Options{
			Temperature:     0.5,
			TopP:            1,
			MaxOutputTokens: 500,
			ResponseFormat:  llm.FormatJSONLeaning,
		})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(out)
}
