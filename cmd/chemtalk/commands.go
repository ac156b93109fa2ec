package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/xpanvictor/chemtalk/internal/app"
	"github.com/xpanvictor/chemtalk/internal/config"
	"github.com/xpanvictor/chemtalk/internal/database"
	"github.com/xpanvictor/chemtalk/internal/domains/conversation"
	"github.com/xpanvictor/chemtalk/internal/domains/user"
	"github.com/xpanvictor/chemtalk/internal/server"
	"github.com/xpanvictor/chemtalk/internal/types"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
)

// localUser owns everything the CLI stores.
var localUser = uuid.NewSHA1(uuid.NameSpaceURL, []byte("chemtalk:cli"))

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chemtalk",
		Short:         "Chemistry study assistant",
		Long:          "chemtalk answers chemistry questions by text or voice, backed by whichever LLM provider is configured.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newAskCommand())
	root.AddCommand(newModelsCommand())
	root.AddCommand(newTokenCommand())
	return root
}

// bootstrap loads config and connects storage the same way for every command.
func bootstrap(ctx context.Context, sessions conversation.SessionProvider, quiet bool) (*app.App, error) {
	cfg, v, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := Logger.New(cfg.Debug)
	if quiet && !cfg.Debug {
		logger = Logger.NewNop()
	}

	db, err := database.InitDB(cfg.DB, cfg.Debug)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	rc, err := database.NewRedis(cfg.Redis)
	if err != nil {
		// the reference cache falls back to memory
		logger.Warnf("redis unavailable: %v", err)
	}

	return app.NewApp(ctx, cfg, v, logger, db, rc, sessions)
}

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and device websocket API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, user.ContextSession{}, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Start(); err != nil {
				return err
			}
			if addr == "" {
				addr = a.Config.HTTP.Addr
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           server.NewRouter(a.GetServerDependencies(), a.Config.Debug),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.Logger.Infof("listening on %s", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			// 5 secs then cancel
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.Logger.Errorf("shutdown: %v", err)
			}
			a.Logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func newAskCommand() *cobra.Command {
	var (
		subject        string
		topic          string
		conversationID string
		timeout        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ask [utterance]",
		Short: "Answer one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			a, err := bootstrap(ctx, user.StaticSession(localUser), true)
			if err != nil {
				return err
			}
			defer a.Close()

			utterance := strings.Join(args, " ")
			chatCtx := &types.ChatContext{Subject: subject, Topic: topic}

			var answer types.AnswerResult
			if conversationID == "" {
				answer = a.ConversationService.Ask(ctx, utterance, chatCtx)
			} else {
				id, err := uuid.Parse(conversationID)
				if err != nil {
					return fmt.Errorf("invalid conversation id: %w", err)
				}
				answer, err = a.ConversationService.Chat(ctx, id, utterance, chatCtx)
				if errors.Is(err, conversation.ErrNotFound) {
					return fmt.Errorf("conversation %s: %w", id, err)
				}
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
			fmt.Fprintf(cmd.ErrOrStderr(), "(%s, confidence %.2f)\n", answer.Origin, answer.Confidence)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Compound or element the question is about")
	cmd.Flags().StringVar(&topic, "topic", "", "Topic of the question, e.g. bonding")
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Answer within a stored conversation")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Request timeout")
	return cmd
}

func newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models of every configured provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			a, err := bootstrap(ctx, user.StaticSession(localUser), true)
			if err != nil {
				return err
			}
			defer a.Close()

			active := ""
			if pack, ok := a.LLMRouter.Active(); ok {
				active = pack.Name
			}
			catalog := a.LLMRouter.Catalog(ctx)
			if len(catalog) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no providers configured; answers come from fallback rules")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, entry := range catalog {
				mark := " "
				if entry.Provider == active {
					mark = "*"
				}
				if entry.Err != "" {
					fmt.Fprintf(w, "%s %s\terror: %s\n", mark, entry.Provider, entry.Err)
					continue
				}
				fmt.Fprintf(w, "%s %s\t%s\n", mark, entry.Provider, strings.Join(entry.Models, ", "))
			}
			return w.Flush()
		},
	}
}

func newTokenCommand() *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := config.Load()
			if err != nil {
				return err
			}
			id := localUser
			if userID != "" {
				if id, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid user id: %w", err)
				}
			}
			token, err := user.NewSessionService(cfg.Auth.JWTSecret, nil).IssueToken(id, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id (default: the local CLI user)")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
