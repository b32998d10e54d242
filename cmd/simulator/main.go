// Command simulator replays scripted patient personas through the
// interview flow and prints the conversation and triage outcome. It is a
// fast way to sanity-check questionnaire changes without a running
// server or an LLM key.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/msk-triage-server/internal/agent"
	"github.com/msk-triage-server/internal/interview"
	"github.com/msk-triage-server/internal/service"
	"github.com/msk-triage-server/internal/specs"
)

type persona struct {
	Name              string
	Description       string
	QuestionnaireType string
	ExpectedPathway   agent.Pathway
	Answers           []string
}

var personas = []persona{
	{
		Name:              "office-worker-oa",
		Description:       "45 year old office worker, 8 months of medial right knee pain",
		QuestionnaireType: "knee_oa",
		ExpectedPathway:   agent.PathwayPhysiotherapy,
		Answers: []string{
			"the inside of my right knee",
			"it came on gradually over about 8 months, no injury I can think of",
			"a dull ache, sometimes sharp",
			"no, it stays in the knee",
			"it gets stiff and sometimes swells a little",
			"worse in the morning, eases once I get moving",
			"stairs make it worse, heat helps",
			"6",
			"no, none of those",
		},
	},
	{
		Name:              "footballer-acl",
		Description:       "23 year old footballer, twisting injury with instability",
		QuestionnaireType: "knee_injury",
		ExpectedPathway:   agent.PathwayPhysiotherapy,
		Answers: []string{
			"my left knee",
			"two days ago, I twisted it landing from a header",
			"deep and sharp",
			"no",
			"it swelled up within an hour",
			"constant since the match",
			"twisting hurts and the knee gives way when I turn",
			"7",
			"no, nothing like that",
		},
	},
	{
		Name:              "hot-swollen-knee",
		Description:       "feverish patient with a hot swollen knee, should route urgently",
		QuestionnaireType: "knee_injury",
		ExpectedPathway:   agent.PathwayUrgentCare,
		Answers: []string{
			"my right knee",
			"it started yesterday out of nowhere",
			"throbbing",
			"no",
			"the whole knee is swollen and warm",
			"constant, even at rest",
			"nothing helps",
			"9",
			"yes, I have a fever and the knee feels hot",
		},
	},
}

func main() {
	var (
		personaName = flag.String("persona", "", "persona to replay (default: all)")
		listOnly    = flag.Bool("list", false, "list available personas and exit")
	)
	flag.Parse()

	if *listOnly {
		for _, p := range personas {
			fmt.Printf("%-20s %s (%s)\n", p.Name, p.Description, p.QuestionnaireType)
		}
		return
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	registry, err := specs.NewRegistry(logger)
	if err != nil {
		log.Fatalf("Failed to load questionnaire specifications: %v", err)
	}
	engine := service.NewRuleEngine(logger)
	summarizer := agent.NewSummaryAgent(nil, logger)

	selected := personas
	if *personaName != "" {
		selected = nil
		for _, p := range personas {
			if p.Name == *personaName {
				selected = []persona{p}
			}
		}
		if selected == nil {
			names := make([]string, 0, len(personas))
			for _, p := range personas {
				names = append(names, p.Name)
			}
			sort.Strings(names)
			log.Fatalf("Unknown persona %q, available: %s", *personaName, strings.Join(names, ", "))
		}
	}

	failures := 0
	for _, p := range selected {
		if !replay(registry, engine, summarizer, p) {
			failures++
		}
	}
	if failures > 0 {
		fmt.Printf("\n%d of %d personas did not reach their expected pathway\n", failures, len(selected))
		os.Exit(1)
	}
}

func replay(registry *specs.Registry, engine *service.RuleEngine, summarizer *agent.SummaryAgent, p persona) bool {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("PERSONA: %s\n", p.Name)
	fmt.Printf("%s\n", p.Description)
	fmt.Printf("Expected pathway: %s\n", p.ExpectedPathway)
	fmt.Println(strings.Repeat("=", 60))

	spec, err := registry.Get(p.QuestionnaireType)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", p.QuestionnaireType, err)
	}

	sess := interview.NewSession(p.QuestionnaireType)
	for i := 0; !sess.Complete(); i++ {
		printLine("BOT", sess.Question())

		answer := "I'm not sure"
		if i < len(p.Answers) {
			answer = p.Answers[i]
		}
		printLine("PATIENT", answer)
		sess = sess.Advance(spec, answer)
	}

	result := engine.Evaluate(spec, sess.Record)
	sess = sess.WithResult(result)
	pathway := agent.PathwayFor(result)

	fmt.Println(strings.Repeat("-", 60))
	fmt.Println(summarizer.Summarize(context.Background(), sess))
	fmt.Printf("\nPathway: %s\n", pathway)

	if pathway != p.ExpectedPathway {
		fmt.Printf("MISMATCH: expected %s\n", p.ExpectedPathway)
		return false
	}
	return true
}

func printLine(role, text string) {
	fmt.Printf("[%s] %s: %s\n", time.Now().Format("15:04:05"), role, text)
}
