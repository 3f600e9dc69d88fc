package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/labassist-backend/internal/chat"
	"github.com/heartmarshall/labassist-backend/internal/domain"
)

var errNoThread = errors.New("no thread to add the message to")

type sendResult struct {
	ThreadID      string       `yaml:"threadId"`
	CreatedThread bool         `yaml:"createdThread"`
	Message       messageView  `yaml:"message"`
	Reply         *messageView `yaml:"reply,omitempty"`
}

func newSendCommand(opts *RootOptions) *cobra.Command {
	var threadID, reply string

	cmd := &cobra.Command{
		Use:   "send <message>...",
		Short: "Add a user message to a thread",
		Long: `Add a user message to a thread. Without --thread the message goes to the
active thread, and a new thread titled after the message is created when
there is none. --reply streams an assistant reply into the same thread.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *session, out *printer) error {
				ctx := cmd.Context()

				ref, ok := s.store.AddMessage(ctx, chat.NewMessage{
					ThreadID: threadID,
					Role:     domain.MessageRoleUser,
					Content:  strings.Join(args, " "),
				})
				if !ok {
					return errNoThread
				}

				var replyRef *chat.MessageRef
				if reply != "" {
					r, ok := s.streamer.Stream(ctx, ref.ThreadID, reply)
					if !ok {
						return errNoThread
					}
					s.streamer.Wait()
					replyRef = &r
				}

				t, err := s.store.Thread(ctx, ref.ThreadID)
				if err != nil {
					return err
				}
				res := sendResult{ThreadID: ref.ThreadID, CreatedThread: ref.CreatedThread}
				for _, m := range t.Messages {
					v := viewMessage(m)
					switch {
					case m.ID == ref.MessageID:
						res.Message = v
					case replyRef != nil && m.ID == replyRef.MessageID:
						res.Reply = &v
					}
				}

				return out.print(res, func(w io.Writer) {
					if res.CreatedThread {
						fmt.Fprintf(w, "created thread %s\n", res.ThreadID)
					}
					fmt.Fprintf(w, "%s -> %s (%s)\n", res.Message.ID, res.ThreadID, orPublic(res.Message.Sensitivity))
					if res.Reply != nil {
						fmt.Fprintf(w, "assistant: %s\n", res.Reply.Content)
					}
				})
			})
		},
	}

	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "target thread id")
	cmd.Flags().StringVar(&reply, "reply", "", "assistant reply to stream after the message")

	return cmd
}

func newNewCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new [title]...",
		Short: "Create an empty thread",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *session, out *printer) error {
				id := s.store.CreateThread(cmd.Context(), strings.Join(args, " "))
				t, err := s.store.Thread(cmd.Context(), id)
				if err != nil {
					return err
				}
				return out.print(summarize([]domain.Thread{t}, id)[0], func(w io.Writer) {
					fmt.Fprintf(w, "created thread %s %q\n", t.ID, t.Title)
				})
			})
		},
	}
}

func newThreadsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "threads",
		Aliases: []string{"ls"},
		Short:   "List threads",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *session, out *printer) error {
				list := summarize(s.store.Threads(cmd.Context()), s.store.ActiveThreadID())
				return out.print(list, func(w io.Writer) { writeSummaries(w, list) })
			})
		},
	}
}

func newShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <thread-id>",
		Short: "Print a thread with its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *session, out *printer) error {
				t, err := s.store.Thread(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				v := viewThread(t)
				return out.print(v, func(w io.Writer) { writeThread(w, v) })
			})
		},
	}
}

func newRenameCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <thread-id> <title>...",
		Short: "Rename a thread",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return threadAction(cmd, opts, args[0], "renamed", func(s *session) error {
				return s.store.RenameThread(cmd.Context(), args[0], strings.Join(args[1:], " "))
			})
		},
	}
}

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <thread-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a thread",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return threadAction(cmd, opts, args[0], "deleted", func(s *session) error {
				return s.store.DeleteThread(cmd.Context(), args[0])
			})
		},
	}
}

func newClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <thread-id>",
		Short: "Remove every message from a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return threadAction(cmd, opts, args[0], "cleared", func(s *session) error {
				return s.store.ClearThread(cmd.Context(), args[0])
			})
		},
	}
}

type actionResult struct {
	ThreadID string `yaml:"threadId"`
	Action   string `yaml:"action"`
}

func threadAction(cmd *cobra.Command, opts *RootOptions, id, action string, fn func(s *session) error) error {
	return withSession(cmd, opts, func(s *session, out *printer) error {
		if err := fn(s); err != nil {
			return err
		}
		res := actionResult{ThreadID: id, Action: action}
		return out.print(res, func(w io.Writer) { fmt.Fprintf(w, "%s %s\n", action, id) })
	})
}

func newSearchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>...",
		Short: "Find threads whose title or messages contain the query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *session, out *printer) error {
				found := s.store.SearchThreads(cmd.Context(), strings.Join(args, " "))
				list := summarize(found, s.store.ActiveThreadID())
				return out.print(list, func(w io.Writer) { writeSummaries(w, list) })
			})
		},
	}
}

func orPublic(sensitivity string) string {
	if sensitivity == "" {
		return string(domain.SensitivityPublic)
	}
	return sensitivity
}
