package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/internal/service/economy"
	"github.com/heartmarshall/hideout-backend/internal/service/notify"
)

type runFunc func(fn func(ctx context.Context, env *Env, out io.Writer, args []string) error) func(*cobra.Command, []string) error

// tokenCheckInterval is how often watch renews the realtime token.
const tokenCheckInterval = time.Minute

func newLoginCommand(run runFunc) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, env *Env, out io.Writer, _ []string) error {
			if password == "" {
				password = os.Getenv("HIDEOUT_PASSWORD")
			}
			email = strings.TrimSpace(email)
			if email == "" || password == "" {
				return errors.New("--email and --password (or HIDEOUT_PASSWORD) are required")
			}

			s, err := env.Creds.Login(ctx, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "signed in as %s\n", s.Email)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCommand(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, env *Env, out io.Writer, _ []string) error {
			if err := env.Creds.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "signed out")
			return nil
		}),
	}
}

// mirror returns a loaded mirror for the signed-in student and the
// authenticated context to drive it with.
func mirror(ctx context.Context, env *Env, opts ...economy.MirrorOption) (context.Context, domain.AuthSession, *economy.Mirror, error) {
	ctx, s, err := env.Creds.Context(ctx)
	if err != nil {
		return ctx, s, nil, err
	}
	m := env.Economy.NewMirror(s.UserID, opts...)
	if err := m.Refresh(ctx); err != nil {
		return ctx, s, nil, err
	}
	return ctx, s, m, nil
}

func newMeCommand(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show points and pet",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, env *Env, out io.Writer, _ []string) error {
			_, _, m, err := mirror(ctx, env)
			if err != nil {
				return err
			}
			defer m.Close()

			printSnapshot(out, m.Snapshot())
			return nil
		}),
	}
}

func newFeedCommand(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "Spend points to feed the pet",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, env *Env, out io.Writer, _ []string) error {
			ctx, _, m, err := mirror(ctx, env)
			if err != nil {
				return err
			}
			defer m.Close()

			res, err := m.Feed(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "fed %s: %dP left, %s\n", res.Pet.Name, res.Points, petLine(res.Pet))
			if res.LeveledUp {
				fmt.Fprintf(out, "level up! %s is now Lv.%d\n", res.Pet.Name, res.Pet.Level)
			}
			return nil
		}),
	}
}

func newBuyCommand(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <item-id>",
		Short: "Buy a shop item",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, env *Env, out io.Writer, args []string) error {
			ctx, _, m, err := mirror(ctx, env)
			if err != nil {
				return err
			}
			defer m.Close()

			res, err := m.BuyItem(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "bought %s %s for %dP, %dP left\n", res.Item.Icon, res.Item.Name, res.Item.Price, res.Points)
			return nil
		}),
	}
}

func newEquipCommand(run runFunc) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "equip [item-id]",
		Short: "Equip an owned background",
		Args:  cobra.MaximumNArgs(1),
		RunE: run(func(ctx context.Context, env *Env, out io.Writer, args []string) error {
			itemID := ""
			switch {
			case reset && len(args) > 0:
				return errors.New("pass an item id or --reset, not both")
			case !reset && len(args) == 0:
				return errors.New("item id is required")
			case !reset:
				itemID = args[0]
			}

			ctx, _, m, err := mirror(ctx, env)
			if err != nil {
				return err
			}
			defer m.Close()

			pet, err := m.EquipItem(ctx, itemID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "background: %s\n", orDash(pet.Background))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "go back to the default background")
	return cmd
}

func newShopCommand(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "shop",
		Short: "List shop items",
		Args:  cobra.NoArgs,
		RunE: run(func(_ context.Context, env *Env, out io.Writer, _ []string) error {
			for _, it := range env.Shop.Items() {
				fmt.Fprintf(out, "%-12s %s %s  %dP\n", it.ID, it.Icon, it.Name, it.Price)
			}
			return nil
		}),
	}
}

func newWatchCommand(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow points, pet and notifications live",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, env *Env, out io.Writer, _ []string) error {
			err := watch(ctx, env, out)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}),
	}
}

// watch mirrors the student until ctx ends or the change stream closes.
func watch(ctx context.Context, env *Env, out io.Writer) error {
	p := &printer{w: out}

	ctx, s, m, err := mirror(ctx, env, economy.WithObserver(p.snapshot))
	if err != nil {
		return err
	}
	defer m.Close()
	p.snapshot(m.Snapshot())

	stream, err := env.Stream.Subscribe(ctx, s.UserID, s.AccessToken)
	if err != nil {
		return err
	}
	defer stream.Unsubscribe()

	listener, err := notify.NewListener(env.Logger, m, &refresher{env: env, mirror: m}, env.Notify, nil)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := listener.Run(gctx, stream.Events()); err != nil {
			return err
		}
		return errStreamClosed
	})
	g.Go(func() error {
		for n := range listener.Notifications() {
			p.notification(n)
		}
		return nil
	})
	g.Go(func() error {
		return renewToken(gctx, env.Creds, stream, s.AccessToken)
	})

	err = g.Wait()
	if errors.Is(err, errStreamClosed) {
		return nil
	}
	return err
}

var errStreamClosed = errors.New("change stream closed")

// renewToken keeps the realtime subscription authenticated across access
// token refreshes.
func renewToken(ctx context.Context, creds *Credentials, stream domain.ChangeStream, current string) error {
	ticker := time.NewTicker(tokenCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s, err := creds.Session(ctx)
			if err != nil {
				return err
			}
			if s.AccessToken != current {
				current = s.AccessToken
				stream.SetAccessToken(current)
			}
		}
	}
}

// refresher re-reads the balance when the listener asks for it.
type refresher struct {
	env    *Env
	mirror *economy.Mirror
}

func (r *refresher) Refresh(ctx context.Context, kind domain.RefreshKind) {
	if !kind.Has(domain.RefreshPoints) {
		return
	}
	ctx, _, err := r.env.Creds.Context(ctx)
	if err == nil {
		if kind.Has(domain.RefreshResync) {
			err = r.mirror.Resync(ctx)
		} else {
			err = r.mirror.Refresh(ctx)
		}
	}
	if err != nil {
		r.env.Logger.Warn("refresh failed", "error", err.Error())
	}
}

// printer serializes output from the observer and the notification loop.
type printer struct {
	mu   sync.Mutex
	w    io.Writer
	last economy.Snapshot
}

func (p *printer) snapshot(s economy.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.Points == p.last.Points && s.Pet.Level == p.last.Pet.Level && s.Pet.Exp == p.last.Pet.Exp &&
		s.Pet.Background == p.last.Pet.Background && s.Loaded == p.last.Loaded {
		return
	}
	p.last = s
	printSnapshot(p.w, s)
}

func (p *printer) notification(n domain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s\n", n.Icon, n.Message)
}

func printSnapshot(w io.Writer, s economy.Snapshot) {
	fmt.Fprintf(w, "%s  %dP  %s\n", s.Name, s.Points, petLine(s.Pet))
}

func petLine(p domain.PetState) string {
	fed := "never fed"
	if !p.LastFed.IsZero() {
		fed = "fed " + p.LastFed.String()
	}
	return fmt.Sprintf("%s Lv.%d (%d/%d exp, %s, background %s)",
		p.Name, p.Level, p.Exp, domain.MaxPetExp, fed, orDash(p.Background))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
