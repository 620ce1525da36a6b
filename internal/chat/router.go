package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/holdembot/internal/game"
	"github.com/lox/holdembot/internal/table"
)

var (
	errNoTable = errors.New("you are not at a table, use open or join <table-id>")
	errUsage   = errors.New("usage")
)

// Session is the caller a command runs for.
type Session interface {
	UserID() string
	Name() string
	TableID() string
	Subscribe(tableID, channel string)
	Reply(text string)
}

// Router turns text commands into registry and table calls.
type Router struct {
	registry *table.Registry
	logger   zerolog.Logger
}

// NewRouter creates a router over registry.
func NewRouter(registry *table.Registry, logger zerolog.Logger) *Router {
	return &Router{
		registry: registry,
		logger:   logger.With().Str("component", "router").Logger(),
	}
}

// Handle runs one command line. Every failure is replied to the sender.
func (r *Router) Handle(ctx context.Context, s Session, line string) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]
	r.logger.Debug().Str("user", s.UserID()).Str("command", cmd).Strs("args", args).Msg("Command")

	if err := r.dispatch(ctx, s, cmd, args); err != nil {
		s.Reply(fmt.Sprintf("@%s, %s", s.Name(), err))
	}
}

func (r *Router) dispatch(ctx context.Context, s Session, cmd string, args []string) error {
	switch cmd {
	case "help":
		s.Reply(helpText)
		return nil
	case "open":
		return r.open(s)
	case "join":
		return r.join(ctx, s, args)
	case "tables":
		return r.tables(s)
	}

	t, err := r.current(s)
	if err != nil {
		return err
	}
	switch cmd {
	case "addbot":
		res, err := t.AddBot(ctx)
		if err != nil {
			return err
		}
		s.Reply(fmt.Sprintf("%s sat down with %d chips", res.Name, res.Chips))
		return nil
	case "leave":
		if err := t.Leave(ctx, s.UserID()); err != nil {
			return err
		}
		s.Subscribe("", "")
		return nil
	case "start":
		return t.Start(ctx, s.UserID())
	case "continue":
		return t.Continue(ctx, s.UserID())
	case "check":
		return t.Check(ctx, s.UserID())
	case "call":
		return t.Call(ctx, s.UserID())
	case "fold":
		return t.Fold(ctx, s.UserID())
	case "allin":
		return t.AllIn(ctx, s.UserID())
	case "bet", "raise":
		if len(args) != 1 {
			return fmt.Errorf("%w: bet <amount>", errUsage)
		}
		amount, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: bet <amount>", errUsage)
		}
		return t.Act(ctx, s.UserID(), game.Raise, amount)
	case "info":
		s.Reply(t.Info().String())
		return nil
	case "close":
		if t.Owner() != s.UserID() {
			return table.ErrNotOwner
		}
		if err := r.registry.Close(ctx, t.ID()); err != nil {
			return err
		}
		s.Subscribe("", "")
		s.Reply(fmt.Sprintf("Table %s closed, chips returned", t.ID()))
		return nil
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func (r *Router) open(s Session) error {
	channel := "ch-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	t := r.registry.Open(channel, s.UserID())
	s.Subscribe(t.ID(), t.Channel())
	s.Reply(fmt.Sprintf("Opened table %s", t.ID()))
	return nil
}

func (r *Router) join(ctx context.Context, s Session, args []string) error {
	id := s.TableID()
	if len(args) > 0 {
		id = args[0]
	}
	if id == "" {
		return fmt.Errorf("%w: join <table-id>", errUsage)
	}
	t, err := r.registry.Get(id)
	if err != nil {
		return err
	}
	res, err := t.Join(ctx, s.UserID(), s.Name(), false)
	if err != nil {
		return err
	}
	s.Subscribe(t.ID(), t.Channel())
	s.Reply(fmt.Sprintf("Joined table %s with %d chips, %d left in your bankroll", t.ID(), res.Chips, res.Balance))
	return nil
}

func (r *Router) tables(s Session) error {
	list := r.registry.List()
	if len(list) == 0 {
		s.Reply("No open tables")
		return nil
	}
	var b strings.Builder
	for _, t := range list {
		state := "waiting"
		if t.Running {
			state = "running"
		}
		fmt.Fprintf(&b, "%s owner %s, %d/%d players, %s\n", t.ID, t.Owner, t.Players, t.MaxPlayers, state)
	}
	s.Reply(strings.TrimRight(b.String(), "\n"))
	return nil
}

// current resolves the table a command applies to: the one the session is
// pointed at, else the one the user is seated at.
func (r *Router) current(s Session) (*table.Table, error) {
	if id := s.TableID(); id != "" {
		t, err := r.registry.Get(id)
		if err == nil {
			return t, nil
		}
		s.Subscribe("", "")
	}
	if t, ok := r.registry.Find(s.UserID()); ok {
		s.Subscribe(t.ID(), t.Channel())
		return t, nil
	}
	return nil, errNoTable
}

const helpText = `Commands:
  open              open a new table
  join <table-id>   sit down at a table
  addbot            seat a bot at your table
  leave             leave your table
  start, continue   deal the first or next hand
  check, call, fold, allin, bet <n>
  info              show the table
  tables            list open tables
  close             close your table`
