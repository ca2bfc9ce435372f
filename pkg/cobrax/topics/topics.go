// Package topics extends Cobra's help with arbitrary named topics read
// from a file system, typically an embedded one. `kam help <topic>`
// then works alongside `kam help <command>`.
package topics

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// Topic is one loaded help topic.
type Topic struct {
	Name    string
	Ext     string
	Content string
}

// Options configures topic loading.
type Options struct {
	// Extensions limits which files become topics. Defaults to
	// [".md", ".txt"].
	Extensions []string

	// Renderer formats topic content for the terminal. Defaults to
	// PlainRenderer.
	Renderer Renderer
}

// Manager holds the loaded topics and the help function it replaced.
type Manager struct {
	topics       map[string]*Topic
	originalHelp func(*cobra.Command, []string)
	renderer     Renderer
}

// Load reads every topic file from fsys.
func Load(fsys fs.FS, opts Options) (*Manager, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".md", ".txt"}
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = &PlainRenderer{}
	}

	m := &Manager{topics: make(map[string]*Topic), renderer: renderer}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		ext := path.Ext(p)
		supported := false
		for _, e := range exts {
			if ext == e {
				supported = true
				break
			}
		}
		if !supported {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}

		name := strings.TrimSuffix(path.Base(p), ext)
		m.topics[name] = &Topic{Name: name, Ext: ext, Content: string(content)}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load help topics: %w", err)
	}

	return m, nil
}

// Get retrieves a topic by name. Flag spellings are normalized:
// "--force" finds the "force" topic.
func (m *Manager) Get(name string) (*Topic, bool) {
	name = strings.TrimLeft(name, "-")
	topic, ok := m.topics[name]
	return topic, ok
}

// Names returns every topic name, sorted.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.topics))
	for name := range m.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install wires the manager into the root command: a `help` command
// that understands both subcommands and topics, and a matching
// override of the --help function.
func (m *Manager) Install(rootCmd *cobra.Command) {
	m.originalHelp = rootCmd.HelpFunc()

	helpCmd := &cobra.Command{
		Use:   "help [command or topic]",
		Short: "Help about any command or topic",
		Long: `Help provides help for any command or topic.
Type ` + rootCmd.Name() + ` help topics to list the available topics.`,
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			completions := []string{"topics"}
			for _, c := range rootCmd.Commands() {
				if !c.Hidden {
					completions = append(completions, c.Name())
				}
			}
			completions = append(completions, m.Names()...)
			return completions, cobra.ShellCompDirectiveNoFileComp
		},
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				m.originalHelp(rootCmd, nil)
				return
			}

			if args[0] == "topics" {
				m.printTopicList(rootCmd.Name())
				return
			}

			if m.show(args[0]) {
				return
			}
			m.originalHelp(rootCmd, args)
		},
	}

	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "help" {
			rootCmd.RemoveCommand(cmd)
			break
		}
	}
	rootCmd.AddCommand(helpCmd)

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if len(args) > 0 && m.show(args[0]) {
			return
		}
		m.originalHelp(cmd, args)
	})
}

// show renders the named topic if it exists.
func (m *Manager) show(name string) bool {
	topic, ok := m.Get(name)
	if !ok {
		return false
	}
	fmt.Print(m.renderer.Render(topic.Content, topic.Ext))
	return true
}

func (m *Manager) printTopicList(appName string) {
	names := m.Names()
	if len(names) == 0 {
		fmt.Println("No help topics available.")
		return
	}

	fmt.Println("Available help topics:")
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
	fmt.Printf("\nUse '%s help <topic>' to read about a specific topic.\n", appName)
}

// Install loads topics from fsys and wires them into rootCmd in one
// call.
func Install(rootCmd *cobra.Command, fsys fs.FS, opts Options) error {
	m, err := Load(fsys, opts)
	if err != nil {
		return err
	}
	m.Install(rootCmd)
	return nil
}
