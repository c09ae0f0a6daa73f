package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/example/artframe/internal/editor"
	"github.com/example/artframe/internal/pointer"
	"github.com/example/artframe/internal/session"
	"github.com/example/artframe/internal/transform"
)

type commandList []string

func (c *commandList) String() string {
	return strings.Join(*c, ";")
}

func (c *commandList) Set(value string) error {
	*c = append(*c, value)
	return nil
}

type interactiveCmd struct {
	r  *root
	fs *flag.FlagSet

	execs   commandList
	timeout time.Duration
	session *session.Session
	stdout  io.Writer
	stderr  io.Writer
}

func (i *interactiveCmd) FlagSet() *flag.FlagSet {
	return i.fs
}

func (i *interactiveCmd) Program() string {
	return i.r.Program() + " interactive"
}

func newInteractiveCmd(r *root) *interactiveCmd {
	return &interactiveCmd{r: r, timeout: 30 * time.Second, stdout: r.out(), stderr: r.errOut()}
}

func parseInteractiveCmd(args []string, r *root) (*interactiveCmd, error) {
	c := newInteractiveCmd(r)
	fs := flag.NewFlagSet("interactive", flag.ContinueOnError)
	c.fs = fs
	fs.Usage = usageFunc(c)
	fs.Var(&c.execs, "e", "execute a command and exit (may be specified multiple times)")
	fs.DurationVar(&c.timeout, "timeout", c.timeout, "how long open waits for an image to load")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (i *interactiveCmd) ensureSession() *session.Session {
	if i.session == nil {
		i.session = session.New(i.r.sessionOptions())
	}
	return i.session
}

func (i *interactiveCmd) Run() error {
	defer func() {
		if i.session != nil {
			i.session.Dispose()
		}
	}()
	if len(i.execs) > 0 {
		for _, cmd := range i.execs {
			done, err := i.executeLine(cmd)
			if err != nil {
				return err
			}
			if done {
				break
			}
		}
		return nil
	}

	in := i.r.stdin
	if in == nil {
		return fmt.Errorf("interactive: no input")
	}
	fmt.Fprintln(i.stdout, "Enter commands (type 'exit' to quit)")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(i.stdout, "> ")
		if !scanner.Scan() {
			break
		}
		done, err := i.executeLine(scanner.Text())
		if err != nil {
			fmt.Fprintln(i.stderr, err)
		}
		if done {
			break
		}
	}
	return scanner.Err()
}

func parseFloats(args []string, n int, usage string) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("usage: %s", usage)
	}
	out := make([]float64, n)
	for k, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number %q", usage, a)
		}
		out[k] = v
	}
	return out, nil
}

// executeLine runs one command. done reports that the session should end.
func (i *interactiveCmd) executeLine(line string) (done bool, err error) {
	args := strings.Fields(strings.TrimSpace(line))
	if len(args) == 0 {
		return false, nil
	}
	s := i.ensureSession()
	name, rest := strings.ToLower(args[0]), args[1:]
	switch name {
	case "exit", "quit":
		s.FlushChange()
		return true, nil
	case "open":
		ref := strings.Join(rest, " ")
		s.SetSource(ref, nil)
		ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
		defer cancel()
		if err := s.WaitLoaded(ctx); err != nil {
			return false, fmt.Errorf("open: %w", err)
		}
		status, _ := s.Status()
		fmt.Fprintln(i.stdout, status)
	case "scale":
		v, err := parseFloats(rest, 1, "scale <value>")
		if err != nil {
			return false, err
		}
		s.SetScale(v[0])
		i.printState(s)
	case "rotate":
		v, err := parseFloats(rest, 1, "rotate <degrees>")
		if err != nil {
			return false, err
		}
		s.SetRotation(v[0])
		i.printState(s)
	case "move":
		v, err := parseFloats(rest, 2, "move <x> <y>")
		if err != nil {
			return false, err
		}
		s.SetPosition(v[0], v[1])
		i.printState(s)
	case "nudge":
		v, err := parseFloats(rest, 2, "nudge <dx> <dy>")
		if err != nil {
			return false, err
		}
		s.Nudge(v[0], v[1])
		i.printState(s)
	case "drag":
		v, err := parseFloats(rest, 4, "drag <x0> <y0> <x1> <y1>")
		if err != nil {
			return false, err
		}
		if status, _ := s.Status(); status != session.StatusReady {
			return false, fmt.Errorf("drag: no image loaded")
		}
		s.PointerDown(pointer.Position{X: v[0], Y: v[1]})
		s.PointerMove(pointer.Position{X: v[2], Y: v[3]})
		s.PointerUp()
		i.printState(s)
	case "reset":
		s.Reset()
		i.printState(s)
	case "state":
		return false, transform.Encode(i.stdout, s.State())
	case "status":
		status, err := s.Status()
		if err != nil {
			fmt.Fprintf(i.stdout, "%s: %v\n", status, err)
		} else {
			fmt.Fprintln(i.stdout, status)
		}
	case "export":
		return false, i.export(s, rest)
	case "help":
		fmt.Fprint(i.stdout, (&UsageError{of: i}).Error())
	default:
		return false, fmt.Errorf("unknown command %q (try help)", name)
	}
	return false, nil
}

func (i *interactiveCmd) printState(s *session.Session) {
	fmt.Fprintln(i.stdout, s.State())
}

func (i *interactiveCmd) export(s *session.Session, args []string) error {
	res, err := s.Export(context.Background())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	saveDir := ""
	if i.r.config != nil {
		saveDir = i.r.config.SaveDir
	}
	path := editor.OutputPath(strings.Join(args, " "), saveDir, res.Format)
	if err := editor.WriteResult(path, res); err != nil {
		return err
	}
	i.r.notifier.Export(path, nil)
	summary := struct {
		Path   string          `json:"path"`
		Format string          `json:"format"`
		Bytes  int             `json:"bytes"`
		State  transform.State `json:"state"`
	}{path, res.Format.String(), len(res.Data), s.State()}
	enc := json.NewEncoder(i.stdout)
	return enc.Encode(summary)
}
