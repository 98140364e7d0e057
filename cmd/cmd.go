package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	easy "github.com/t-tomalak/logrus-easy-formatter"

	"github.com/Patches72790/grox/config"
	"github.com/Patches72790/grox/vm"
)

func App() (app *cobra.Command) {
	app = &cobra.Command{
		Use:   "grox [script]",
		Short: "Launch the `grox` interpreter",
		Args:  cobra.MaximumNArgs(1),
	}

	app.Flags().SortFlags = true
	verbosity := app.Flags().StringP("verbosity", "v", "", "Logging verbosity")
	configPath := app.Flags().StringP("config", "c", "", "Path to a grox.toml")
	disassemble := app.Flags().BoolP("disassemble", "S", false, "Dump the compiled chunk instead of running it")

	app.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		if *verbosity == "" {
			*verbosity = cfg.Log.Verbosity
		}
		verbosityLvl, err := logrus.ParseLevel(*verbosity)
		if err != nil {
			verbosityLvl = logrus.InfoLevel
		}
		logrus.SetLevel(verbosityLvl)
		logrus.SetFormatter(&easy.Formatter{LogFormat: "//DBG// %msg%\n"})

		cmd.SilenceUsage = true
		if len(args) == 0 {
			return vm.NewVM().REPL(cfg.REPL.Prompt)
		}
		return runFile(args[0], *disassemble || cfg.Dump.Disassemble)
	}
	return
}

func runFile(path string, disassemble bool) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if disassemble {
		chunk, err := vm.NewParser().Compile(string(src))
		if err != nil {
			return err
		}
		fmt.Print(chunk.Disassemble(path))
		return nil
	}

	return vm.NewVM().Interpret(string(src))
}
