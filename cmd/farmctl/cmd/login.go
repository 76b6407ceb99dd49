package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tendant/farmgate/pkg/auth"
	"github.com/tendant/farmgate/pkg/authclient"
	"github.com/tendant/farmgate/pkg/countdown"
	"github.com/tendant/farmgate/pkg/domain"
	"golang.org/x/term"
)

const lockedNotice = "Too many failed login attempts."

var errStillLocked = errors.New("login is locked, try again later")

var (
	loginEmail string
	noWait     bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Long: `Sign in with email and password. The password is read from the terminal
without echo, or from standard input when it is not a terminal.

After five failed attempts login is locked for thirty seconds. While locked,
farmctl counts down; at a terminal it then prompts again. Ctrl-C cancels the
wait and --no-wait fails immediately instead.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email (default from config)")
	loginCmd.Flags().BoolVar(&noWait, "no-wait", false, "fail instead of waiting out an active lock")
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("email") {
		cfg.Email = loginEmail
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Email) == "" {
		return errors.New("email is required (set it in the config file or pass --email)")
	}

	logger := newLogger(cmd.ErrOrStderr())
	g, store, err := openGuard(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	client := authclient.New(authclient.Config{
		BaseURL: cfg.AuthURL,
		AnonKey: cfg.AnonKey,
		Timeout: cfg.Timeout.Duration,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	r := &loginRunner{
		out:     out,
		service: auth.NewLoginService(logger, client, nil),
		guard:   g,
		password: func() (string, error) {
			return readPassword(os.Stdin, out)
		},
		wait:  !noWait,
		retry: !noWait && term.IsTerminal(int(os.Stdin.Fd())),
	}
	return r.run(ctx, cfg.Email)
}

// loginRunner drives one interactive login against the attempt guard.
type loginRunner struct {
	out      io.Writer
	service  *auth.LoginService
	guard    auth.AttemptGuard
	password func() (string, error)
	wait     bool
	// retry prompts again once a lock imposed during this run expires.
	retry bool
	// interval overrides the countdown tick; zero means one second.
	interval time.Duration
}

func (r *loginRunner) run(ctx context.Context, email string) error {
	for {
		if status := r.guard.CheckLock(ctx); status.Locked {
			fmt.Fprintln(r.out, lockedNotice)
			if !r.wait {
				return errStillLocked
			}
			if !r.waitOut(ctx, status.Seconds()) {
				return ctx.Err()
			}
			fmt.Fprintln(r.out, "You can try again now.")
		}

		password, err := r.password()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		res, err := r.service.Login(ctx, r.guard, email, password)
		if err == nil {
			fmt.Fprintf(r.out, "Signed in as %s (%s).\n", res.Profile.FullName, res.Profile.Role)
			fmt.Fprintf(r.out, "Landing page: %s\n", res.Redirect)
			return nil
		}

		switch {
		case res.Guard.Locked:
			if r.retry {
				// The next pass waits out the lock and prompts again.
				continue
			}
			fmt.Fprintln(r.out, lockedNotice)
			if r.wait && r.waitOut(ctx, res.Guard.Seconds()) {
				fmt.Fprintln(r.out, "You can try again now.")
			}
			return errStillLocked
		case errors.Is(err, domain.ErrInvalidCredentials):
			return fmt.Errorf("incorrect email or password (%d attempts left)", res.Guard.AttemptsLeft)
		case errors.Is(err, domain.ErrEmailNotVerified):
			return errors.New("please verify your email before signing in")
		case res.Message != "":
			return errors.New(res.Message)
		}
		return err
	}
}

// waitOut counts the lock down on one line and reports whether it ran out
// rather than being cancelled.
func (r *loginRunner) waitOut(ctx context.Context, seconds int) bool {
	c := countdown.Start(ctx, seconds, func(remaining int) {
		fmt.Fprintf(r.out, "\rTry again in %ds ", remaining)
	}, nil, countdown.WithInterval(r.interval))
	finished := c.Wait()
	fmt.Fprintln(r.out)
	return finished
}

// readPassword prompts without echo on a terminal and otherwise reads one
// line from in.
func readPassword(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(out, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return readLine(in)
}

func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
