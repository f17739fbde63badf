package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/tbxark/mailagent/agent"
	"github.com/tbxark/mailagent/command"
	"github.com/tbxark/mailagent/config"
	"github.com/tbxark/mailagent/dialogue"
	"github.com/tbxark/mailagent/extract"
	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/message"
	"github.com/tbxark/mailagent/server"
	"github.com/tbxark/mailagent/transport"
)

func main() {
	conf := flag.String("config", "", "path to config file (json, yaml or toml)")
	serve := flag.Bool("serve", false, "serve the HTTP API instead of the console")
	flag.Parse()
	cfg, err := config.Load(*conf)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	slog.SetDefault(cfg.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mailAgent, err := buildAgent(ctx, cfg)
	if err != nil {
		log.Fatalf("build agent: %v", err)
	}
	if *serve {
		err = runServer(ctx, cfg, mailAgent)
	} else {
		err = runConsole(ctx, mailAgent)
	}
	if err != nil {
		log.Fatalf("run: %v", err)
	}
}

func buildAgent(ctx context.Context, cfg *config.Config) (*agent.Agent, error) {
	localRecognizer := intent.NewLocalRecognizer[message.Message]()
	var (
		recognizer intent.Recognizer[message.Message] = localRecognizer
		extractor  extract.Extractor                  = extract.NewRegexExtractor()
		renderer   dialogue.Renderer                  = dialogue.NewLocalRenderer(nil)
	)

	if cfg.LLM.APIKey != "" {
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create chat model: %w", err)
		}
		if recognizer, extractor, err = withChatModel(cm, localRecognizer, extractor); err != nil {
			return nil, err
		}
		renderer = dialogue.NewFailbackRenderer(dialogue.NewToolBasedRenderer(cm, renderer), renderer)
		slog.Info("LLM enabled", "model", cfg.LLM.Model)
	}

	var tr transport.Transport = transport.NewLogTransport(nil)
	if cfg.SMTPEnabled() {
		smtpTransport, err := transport.NewSMTPTransport(cfg.SMTP, transport.NewAddressBook(cfg.Contacts))
		if err != nil {
			return nil, fmt.Errorf("create smtp transport: %w", err)
		}
		tr = smtpTransport
		slog.Info("SMTP delivery enabled", "addr", cfg.SMTP.Addr())
	}

	sessionCache := agent.NewMemoryCache[*agent.Session](agent.WithTTL(cfg.Session.IdleTimeout))
	if cfg.Session.IdleTimeout > 0 {
		go sweep(ctx, sessionCache, cfg.Session.IdleTimeout)
	}
	sessions := agent.NewSessionPool(sessionCache, agent.SessionDeps{
		Renderer:  renderer,
		Transport: tr,
		Extractor: extractor,
	})
	history := agent.NewHistoryStore(nil, agent.LastNTrimmer{N: cfg.History.MaxMessages})
	return agent.NewAgent(
		"MailComposer",
		"An agent that composes and sends emails one field at a time",
		recognizer,
		sessions,
		history,
	), nil
}

// sweep evicts idle sessions until ctx is done.
func sweep(ctx context.Context, cache *agent.MemoryCache[*agent.Session], every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slog.Debug("Swept idle sessions", "remaining", cache.Sweep())
		}
	}
}

// withChatModel puts the LLM strategies next to the local ones. Keyword
// rules answer first; the model is asked when they find nothing.
func withChatModel(cm model.ToolCallingChatModel, local *intent.LocalRecognizer[message.Message], regex extract.Extractor) (intent.Recognizer[message.Message], extract.Extractor, error) {
	toolParser, err := command.NewToolBasedCommandParser[message.Message](cm)
	if err != nil {
		return nil, nil, fmt.Errorf("create command parser: %w", err)
	}
	local.Commands = command.NewFailbackCommandParser[message.Message](local.Commands, toolParser)

	toolRecognizer, err := intent.NewToolBasedRecognizer[message.Message](cm)
	if err != nil {
		return nil, nil, fmt.Errorf("create intent recognizer: %w", err)
	}
	toolExtractor, err := extract.NewToolBasedExtractor(cm)
	if err != nil {
		return nil, nil, fmt.Errorf("create extractor: %w", err)
	}
	return intent.NewFailbackRecognizer[message.Message](local, toolRecognizer),
		extract.NewFailbackExtractor(regex, toolExtractor),
		nil
}

func runConsole(ctx context.Context, mailAgent *agent.Agent) error {
	ctx = agent.WithSessionKey(ctx, uuid.NewString())
	runner := adk.NewRunner(ctx, adk.RunnerConfig{
		Agent: mailAgent,
	})
	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Say something like: send an email to alice")
	for {
		fmt.Print("you: ")
		input, rErr := reader.ReadString('\n')
		if rErr != nil {
			fmt.Println("bye")
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		iter := runner.Run(ctx, []adk.Message{schema.UserMessage(input)})
		for {
			event, ok := iter.Next()
			if !ok {
				break
			}
			if event.Err != nil {
				slog.Error("Turn failed", "error", event.Err)
				continue
			}
			msg, mErr := event.Output.MessageOutput.GetMessage()
			if mErr != nil {
				return mErr
			}
			if msg.Content != "" {
				fmt.Printf("assistant: %s\n", msg.Content)
			}
		}
	}
}

func runServer(ctx context.Context, cfg *config.Config, mailAgent *agent.Agent) error {
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.NewHandler(mailAgent).Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
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
	slog.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
