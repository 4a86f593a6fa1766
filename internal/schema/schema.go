// Package schema describes the command tree for agents and scripts.
package schema

import (
	"fmt"
	"sort"
	"strings"

	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// AnnotationMutates marks commands that sign and submit transactions.
const AnnotationMutates = "solw.mutates"

// Flag annotations cobra sets for MarkFlagsMutuallyExclusive and
// MarkFlagsOneRequired.
const (
	exclusiveGroupAnnotation   = "cobra_annotation_mutually_exclusive"
	oneRequiredGroupAnnotation = "cobra_annotation_one_required"
)

type CommandSchema struct {
	Path        string          `json:"path"`
	Use         string          `json:"use"`
	Short       string          `json:"short"`
	Long        string          `json:"long,omitempty"`
	Aliases     []string        `json:"aliases,omitempty"`
	Mutates     bool            `json:"mutates"`
	Example     string          `json:"example,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	FlagGroups  []FlagGroup     `json:"flag_groups,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

type FlagSchema struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Type      string `json:"type"`
	Usage     string `json:"usage"`
	Default   string `json:"default,omitempty"`
	Required  bool   `json:"required,omitempty"`
}

// FlagGroup is a set of flags constrained together: "exclusive" allows at
// most one of them, "one_required" needs at least one.
type FlagGroup struct {
	Kind  string   `json:"kind"`
	Flags []string `json:"flags"`
}

// Build describes the command at commandPath (relative to root), or the
// whole tree for an empty path.
func Build(root *cobra.Command, commandPath string) (CommandSchema, error) {
	parts := strings.Fields(commandPath)
	if len(parts) == 0 {
		return describe(root), nil
	}
	cmd, rest, err := root.Find(parts)
	if err != nil || len(rest) > 0 || cmd == root {
		return CommandSchema{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("command not found: %s", strings.Join(parts, " ")))
	}
	return describe(cmd), nil
}

func describe(cmd *cobra.Command) CommandSchema {
	s := CommandSchema{
		Path:    cmd.CommandPath(),
		Use:     cmd.Use,
		Short:   cmd.Short,
		Long:    strings.TrimSpace(cmd.Long),
		Aliases: cmd.Aliases,
		Mutates: cmd.Annotations[AnnotationMutates] == "true",
		Example: strings.TrimSpace(cmd.Example),
	}
	s.Flags, s.FlagGroups = describeFlags(cmd.NonInheritedFlags())
	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		s.Subcommands = append(s.Subcommands, describe(sub))
	}
	return s
}

func describeFlags(fs *pflag.FlagSet) ([]FlagSchema, []FlagGroup) {
	var flags []FlagSchema
	seen := map[string]bool{}
	var groups []FlagGroup
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		flags = append(flags, FlagSchema{
			Name:      f.Name,
			Shorthand: f.Shorthand,
			Type:      f.Value.Type(),
			Usage:     f.Usage,
			Default:   f.DefValue,
			Required:  len(f.Annotations[cobra.BashCompOneRequiredFlag]) > 0,
		})
		for kind, key := range map[string]string{"exclusive": exclusiveGroupAnnotation, "one_required": oneRequiredGroupAnnotation} {
			for _, group := range f.Annotations[key] {
				id := kind + ":" + group
				if seen[id] {
					continue
				}
				seen[id] = true
				groups = append(groups, FlagGroup{Kind: kind, Flags: strings.Fields(group)})
			}
		}
	})
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Kind != groups[j].Kind {
			return groups[i].Kind < groups[j].Kind
		}
		return strings.Join(groups[i].Flags, " ") < strings.Join(groups[j].Flags, " ")
	})
	return flags, groups
}
