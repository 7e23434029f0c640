package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentbus/internal/logging"
	"github.com/ppiankov/agentbus/internal/server"
)

var (
	serveAddr     string
	serveDB       string
	serveAuditLog string
	serveConfig   string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":50061", "gRPC listen address")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "Path to sqlite database (empty for in-memory)")
	serveCmd.Flags().StringVar(&serveAuditLog, "audit-log", "", "Path to hash-chained audit log JSONL file")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "Path to server config YAML")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bus gRPC server",
	Long:  "Runs the central bus server over gRPC.\nAgents and deciders connect as clients to propose and poll.\nWith --db the log is durable across restarts; with --audit-log every\nappend is mirrored to a tamper-evident hash chain.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := server.Config{
		Addr:         serveAddr,
		DBPath:       serveDB,
		AuditLogPath: serveAuditLog,
		Logger:       logging.New("agentbus-server"),
	}

	if serveConfig != "" {
		fc, err := server.LoadFileConfig(serveConfig)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("addr") && fc.Addr != "" {
			cfg.Addr = fc.Addr
		}
		if !cmd.Flags().Changed("db") && fc.DB != "" {
			cfg.DBPath = fc.DB
		}
		if !cmd.Flags().Changed("audit-log") && fc.AuditLog != "" {
			cfg.AuditLogPath = fc.AuditLog
		}
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down bus server...")
		srv.GracefulStop()
	}()

	fmt.Fprintf(os.Stderr, "agentbus server listening on %s\n", cfg.Addr)
	if cfg.DBPath != "" {
		fmt.Fprintf(os.Stderr, "Store: %s\n", cfg.DBPath)
	} else {
		fmt.Fprintln(os.Stderr, "Store: in-memory")
	}
	if cfg.AuditLogPath != "" {
		fmt.Fprintf(os.Stderr, "Audit log: %s\n", cfg.AuditLogPath)
	}
	fmt.Fprintln(os.Stderr)

	return srv.Serve()
}
