package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vyomsetu/internal/config"
	"vyomsetu/internal/db"
	"vyomsetu/internal/domain"
	"vyomsetu/internal/engine"
	"vyomsetu/internal/events"
	"vyomsetu/internal/identity"
	"vyomsetu/internal/migrate"
	"vyomsetu/internal/notify"
	"vyomsetu/internal/objectstore"
	"vyomsetu/internal/repo"
	"vyomsetu/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "vyomsetu",
	Short: "VyomSetu CLI",
	Long: `VyomSetu coordinates domain teams: admins and leads hand out tasks,
members submit work, leads review and score it, and every score lands in an
append-only credit ledger. The serve command exposes the HTTP API; the rest
are operator tools for the same store.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("VYOMSETU")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor", "", "acting user id for directory-scoped commands")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor", rootCmd.PersistentFlags().Lookup("actor"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(logCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var devLogin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if e.Config.Auth.JWTSecret == "" {
					return fmt.Errorf("auth.jwt_secret (or VYOMSETU_JWT_SECRET) is required for bearer auth")
				}
				listen := addr
				if listen == "" {
					listen = e.Config.Server.Addr
				}
				handler, err := server.New(server.Config{
					Engine:   e,
					BasePath: basePath,
					Auth: server.AuthConfig{
						JWTSecret: e.Config.Auth.JWTSecret,
						DevLogin:  devLogin,
					},
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: listen, Handler: handler}
				go func() {
					<-ctx.Done()
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(sctx)
				}()
				fmt.Printf("Serving VyomSetu API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", listen, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "enable the dev token-minting endpoint")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default vyomsetu.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(c)
		},
	})
	return cfg
}

func seedCmd() *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the first super-admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" {
				return fmt.Errorf("--email required")
			}
			return withConn(func(conn *sql.DB) error {
				ctx := cmd.Context()
				r := repo.Repo{DB: conn}
				if u, err := r.GetUserByEmail(ctx, email); err == nil {
					return fmt.Errorf("%s already exists with role %s", u.Email, u.Role)
				} else if !errors.Is(err, repo.ErrNotFound) {
					return err
				}
				now := time.Now().UTC().Format(time.RFC3339)
				u := domain.User{
					ID:        engine.NewUserID(),
					Name:      name,
					Email:     email,
					Role:      domain.RoleSuperAdmin,
					CreatedAt: now,
					UpdatedAt: now,
				}
				tx, err := conn.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				if err := r.InsertUser(ctx, tx, u); err != nil {
					return err
				}
				w := events.Writer{DB: conn}
				if err := w.Append(ctx, tx, "user.provisioned", events.KindUser, u.ID, u.ID, events.EventPayload{"email": u.Email, "role": u.Role}); err != nil {
					return err
				}
				if err := tx.Commit(); err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "super-admin email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func tokenCmd() *cobra.Command {
	var subject, email, name string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret (or VYOMSETU_JWT_SECRET) is required")
			}
			email = strings.ToLower(strings.TrimSpace(email))
			if subject == "" {
				if email == "" {
					return fmt.Errorf("--subject or --email required")
				}
				err := withConn(func(conn *sql.DB) error {
					r := repo.Repo{DB: conn}
					u, err := r.GetUserByEmail(cmd.Context(), email)
					if err == nil {
						subject = u.ID
						return nil
					}
					if errors.Is(err, repo.ErrNotFound) {
						subject = engine.NewUserID()
						return nil
					}
					return err
				})
				if err != nil {
					return err
				}
			}
			if ttl <= 0 {
				ttl, _ = cfg.TokenTTL()
			}
			signer := identity.JWT{Secret: cfg.Auth.JWTSecret}
			token, err := signer.Mint(identity.Identity{Subject: subject, Name: name, Email: email}, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "user id (defaults to the record for --email)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&name, "name", "", "name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	return cmd
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage the user directory"}
	user.AddCommand(userListCmd())
	user.AddCommand(userShowCmd())
	user.AddCommand(userSetRoleCmd())
	user.AddCommand(userUpdateCmd())
	user.AddCommand(userDeleteCmd())
	return user
}

func userListCmd() *cobra.Command {
	var f repo.UserFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actorID, err := requireActor()
				if err != nil {
					return err
				}
				users, err := e.ListUsers(ctx, actorID, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Role", "Domain"})
				for _, u := range users {
					tw.AppendRow(table.Row{u.ID, u.Name, u.Email, u.Role, u.Domain})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Role, "role", "", "role filter")
	cmd.Flags().StringVar(&f.Domain, "domain", "", "domain filter")
	return cmd
}

func userShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actorID, err := requireActor()
				if err != nil {
					return err
				}
				u, err := e.GetUser(ctx, actorID, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	return cmd
}

func userSetRoleCmd() *cobra.Command {
	var email, role, userDomain string
	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Assign a role by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actorID, err := requireActor()
				if err != nil {
					return err
				}
				u, err := e.SetUserRole(ctx, engine.SetRoleOptions{
					ActorID: actorID,
					Email:   email,
					Role:    role,
					Domain:  userDomain,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "target user email")
	cmd.Flags().StringVar(&role, "role", "", "super-admin, admin, domain-lead or member")
	cmd.Flags().StringVar(&userDomain, "domain", "", "domain for scoped roles")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func userUpdateCmd() *cobra.Command {
	var name, phone, college, userDomain string
	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Update a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actorID, err := requireActor()
				if err != nil {
					return err
				}
				opts := engine.UserUpdateOptions{ActorID: actorID, UserID: args[0]}
				if cmd.Flags().Changed("name") {
					opts.Name = &name
				}
				if cmd.Flags().Changed("phone") {
					opts.Phone = &phone
				}
				if cmd.Flags().Changed("college") {
					opts.College = &college
				}
				if cmd.Flags().Changed("domain") {
					opts.Domain = &userDomain
				}
				u, err := e.UpdateUser(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone")
	cmd.Flags().StringVar(&college, "college", "", "college")
	cmd.Flags().StringVar(&userDomain, "domain", "", "domain")
	return cmd
}

func userDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actorID, err := requireActor()
				if err != nil {
					return err
				}
				return e.DeleteUser(ctx, actorID, args[0])
			})
		},
	}
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskStatusCmd())
	task.AddCommand(taskDeleteCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actorID, err := requireActor()
				if err != nil {
					return err
				}
				opts.ActorID = actorID
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "task title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Domain, "domain", "", "task domain")
	cmd.Flags().StringVar(&opts.AssigneeID, "assignee-id", "", "assignee user id")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date (RFC3339)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("assignee-id")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actorID, err := requireActor()
				if err != nil {
					return err
				}
				tasks, err := e.ListTasks(ctx, actorID, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				now := time.Now()
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Domain", "Assignee", "Status", "Due", "Overdue"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, t.Domain, t.AssigneeName, t.Status, t.DueDate, t.Overdue(now)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Domain, "domain", "", "domain filter")
	cmd.Flags().StringVar(&f.AssigneeID, "assignee-id", "", "assignee filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows")
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actorID, err := requireActor()
				if err != nil {
					return err
				}
				t, err := e.GetTask(ctx, actorID, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <task-id> <status>",
		Short: "Advance a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actorID, err := requireActor()
				if err != nil {
					return err
				}
				t, err := e.UpdateTaskStatus(ctx, actorID, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actorID, err := requireActor()
				if err != nil {
					return err
				}
				return e.DeleteTask(ctx, actorID, args[0])
			})
		},
	}
	return cmd
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Send reminders for overdue tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.SendReminders(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("sent %d of %d reminders\n", res.SentCount, res.TotalTasks)
				for _, se := range res.Errors {
					fmt.Printf("  %s: %s\n", se.TaskID, se.Error)
				}
				return nil
			})
		},
	}
	return cmd
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage service API keys"}
	key.AddCommand(apikeyCreateCmd())
	key.AddCommand(apikeyListCmd())
	key.AddCommand(apikeyRevokeCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a service API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConn(func(conn *sql.DB) error {
				raw := make([]byte, 32)
				if _, err := rand.Read(raw); err != nil {
					return err
				}
				secret := "vsk_" + hex.EncodeToString(raw)
				r := repo.Repo{DB: conn}
				k := domain.APIKey{
					ID:        engine.NewUserID(),
					Name:      name,
					KeyHash:   repo.HashAPIKey(secret),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := r.InsertAPIKey(cmd.Context(), k); err != nil {
					return err
				}
				// The secret is shown once; only its hash is stored.
				fmt.Println(secret)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConn(func(conn *sql.DB) error {
				r := repo.Repo{DB: conn}
				keys, err := r.ListAPIKeys(cmd.Context())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Created", "Revoked"})
				for _, k := range keys {
					revoked := ""
					if k.RevokedAt != nil {
						revoked = *k.RevokedAt
					}
					tw.AppendRow(table.Row{k.ID, k.Name, k.CreatedAt, revoked})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func apikeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConn(func(conn *sql.DB) error {
				r := repo.Repo{DB: conn}
				return r.RevokeAPIKey(cmd.Context(), args[0])
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	logRoot := &cobra.Command{Use: "log", Short: "Audit event log"}
	var limit int
	var evtType, entityKind, entityID string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConn(func(conn *sql.DB) error {
				r := repo.Repo{DB: conn}
				items, err := r.LatestEvents(cmd.Context(), limit, 0, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				for i := len(items) - 1; i >= 0; i-- {
					evt := items[i]
					fmt.Printf("%s %s %s/%s actor=%s %s\n", evt.TS, evt.Type, evt.EntityKind, evt.EntityID, evt.ActorID, evt.Payload)
				}
				return nil
			})
		},
	}
	tail.Flags().IntVar(&limit, "limit", 50, "max events")
	tail.Flags().StringVar(&evtType, "type", "", "event type filter")
	tail.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind filter")
	tail.Flags().StringVar(&entityID, "entity-id", "", "entity id filter")
	logRoot.AddCommand(tail)
	return logRoot
}

func requireActor() (string, error) {
	actor := strings.TrimSpace(viper.GetString("actor"))
	if actor == "" {
		return "", fmt.Errorf("--actor required")
	}
	return actor, nil
}

func withConn(fn func(conn *sql.DB) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(conn)
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	if cfg.Mail.Enabled {
		e.Mailer = notify.SMTP{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}
	}
	if cfg.ObjectStore.Enabled {
		s3, err := objectstore.NewS3(
			cfg.ObjectStore.Endpoint,
			cfg.ObjectStore.Region,
			cfg.ObjectStore.Bucket,
			cfg.ObjectStore.AccessKey,
			cfg.ObjectStore.SecretKey,
		)
		if err != nil {
			return err
		}
		e.Presigner = s3
	}
	return fn(ctx, e)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
