package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookshelf/bookshelf/config"
	"github.com/bookshelf/bookshelf/database"
	"github.com/bookshelf/bookshelf/logger"
	"github.com/bookshelf/bookshelf/util/crypto"
	"github.com/bookshelf/bookshelf/web"
	"github.com/bookshelf/bookshelf/web/service"

	"github.com/spf13/cobra"
)

var configFile string

func loadConfig() *config.Config {
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal(err)
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	logger.InitLogger(level, cfg.LogFolder)
	return cfg
}

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())
	cfg := loadConfig()
	defer logger.CloseLogger()

	server := web.NewServer(cfg)
	if err := server.Start(); err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			cfg = loadConfig()
			server = web.NewServer(cfg)
			if err := server.Start(); err != nil {
				log.Println(err)
				return
			}
		default:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			return
		}
	}
}

// withUsers opens the configured storage for a one-shot administrative command.
func withUsers(fn func(ctx context.Context, users *service.UserService) error) error {
	cfg := loadConfig()
	defer logger.CloseLogger()

	db, err := database.InitDB(&cfg.Database, cfg.Debug)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.CloseDB(db); err != nil {
			logger.Warning("close database:", err)
		}
	}()

	books, err := web.OpenBooks(cfg, db)
	if err != nil {
		return err
	}
	users := service.NewUserService(db, books, crypto.NewPasswordHasher(cfg.BcryptCost))
	return fn(context.Background(), users)
}

func showUser(nickname string) error {
	return withUsers(func(ctx context.Context, users *service.UserService) error {
		user, err := users.GetUserByNickname(ctx, nickname)
		if err != nil {
			return fmt.Errorf("get user %q failed: %w", nickname, err)
		}
		total, err := users.CountBooks(ctx, user.Id)
		if err != nil {
			return err
		}
		fmt.Println("id:", user.Id)
		fmt.Println("nickname:", user.Nickname)
		fmt.Println("created at:", user.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Println("books:", total)
		return nil
	})
}

func deleteUser(nickname string) error {
	return withUsers(func(ctx context.Context, users *service.UserService) error {
		user, err := users.GetUserByNickname(ctx, nickname)
		if err != nil {
			return fmt.Errorf("get user %q failed: %w", nickname, err)
		}
		if err := users.DeleteUser(ctx, user.Id); err != nil {
			return fmt.Errorf("delete user failed: %w", err)
		}
		fmt.Println("deleted user", user.Nickname, "and their books")
		return nil
	})
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "bookshelf",
		Short: "Personal book collection tracker",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to bookshelf.yaml")

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.GetName(), config.GetVersion())
		},
	}

	var userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var showCmd = &cobra.Command{
		Use:   "show",
		Short: "Show an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			nickname, _ := cmd.Flags().GetString("nickname")
			return showUser(nickname)
		},
	}
	showCmd.Flags().String("nickname", "", "account nickname")
	_ = showCmd.MarkFlagRequired("nickname")

	var deleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "Delete an account and its books",
		RunE: func(cmd *cobra.Command, args []string) error {
			nickname, _ := cmd.Flags().GetString("nickname")
			return deleteUser(nickname)
		},
	}
	deleteCmd.Flags().String("nickname", "", "account nickname")
	_ = deleteCmd.MarkFlagRequired("nickname")

	userCmd.AddCommand(showCmd, deleteCmd)
	rootCmd.AddCommand(runCmd, versionCmd, userCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
