package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"arsflow/internal/expressions"
	"arsflow/internal/simulation"
	"arsflow/internal/streaming"
	"arsflow/pkg/schema"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [scenario-id]",
	Short: "Walk through a scenario interactively",
	Long: `Opens a local simulation session on a stored scenario and drives it
from the terminal. Available commands at the prompt:

  next                 advance along the default edge
  input <value>        provide caller input
  select <choice>      pick a condition branch
  restart              restart from the start node
  stop                 stop the session
  quit                 leave the simulator`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	sc, err := st.GetScenario(ctx, args[0])
	if err != nil {
		return err
	}

	cel, err := expressions.NewCELEngine()
	if err != nil {
		return err
	}
	runner := simulation.NewRunner(cel, expressions.NewExprEngine(), streaming.NewMemoryHub(), logger)

	state, err := runner.Start(ctx, sc)
	if err != nil {
		return err
	}
	fmt.Printf("simulating %s\n\n", sc.Name)
	printState(state)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		subtle.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		verb, rest, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")

		var action schema.SimulationAction
		switch verb {
		case "":
			continue
		case "quit", "q", "exit":
			return nil
		case "next":
			action = schema.SimulationAction{ActionType: schema.ActionNext}
		case "input":
			action = schema.SimulationAction{ActionType: schema.ActionInput, InputValue: rest}
		case "select":
			action = schema.SimulationAction{ActionType: schema.ActionConditionSelect, ConditionChoice: rest}
		case "restart":
			action = schema.SimulationAction{ActionType: schema.ActionRestart}
		case "stop":
			action = schema.SimulationAction{ActionType: schema.ActionStop}
		default:
			warn.Printf("unknown command %q\n", verb)
			continue
		}

		state, err = runner.Apply(ctx, state.SimulationID, action)
		if err != nil {
			bad.Println(err.Error())
			continue
		}
		printState(state)

		if state.IsCompleted {
			good.Println("call completed")
		}
	}
}

func printState(state *schema.SimulationState) {
	node := state.NodeData
	if node == nil {
		fmt.Printf("  [%s]\n", state.Status)
		return
	}

	fmt.Printf("  %s ", node.Name)
	subtle.Printf("(%s, %s)\n", node.NodeType, node.NodeID)

	if cfg, err := schema.DecodeConfig(node.NodeType, node.Config); err == nil {
		switch c := cfg.(type) {
		case *schema.MessageConfig:
			fmt.Printf("  🔊 %s\n", c.Text)
		case *schema.InputConfig:
			fmt.Printf("  ⌨  %s\n", c.InputPrompt)
		case *schema.BranchConfig:
			for _, b := range c.Branches {
				subtle.Printf("     %s. %s\n", b.Key, b.Label)
			}
		}
	}

	actions := make([]string, 0, len(state.AvailableActions))
	for _, a := range state.AvailableActions {
		actions = append(actions, string(a))
	}
	subtle.Printf("  actions: %s\n", strings.Join(actions, ", "))
}
