package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

type Command struct {
	Path string
	Args []string
}

func SelectCommand(goos string, lookPath func(string) (string, error)) (Command, error) {
	switch goos {
	case "darwin":
		path, err := lookPath("pbcopy")
		if err != nil {
			return Command{}, ErrToolNotFound
		}
		return Command{Path: path}, nil
	case "linux", "freebsd", "openbsd":
		if path, err := lookPath("wl-copy"); err == nil {
			return Command{Path: path}, nil
		}
		if path, err := lookPath("xclip"); err == nil {
			return Command{Path: path, Args: []string{"-selection", "clipboard"}}, nil
		}
		if path, err := lookPath("xsel"); err == nil {
			return Command{Path: path, Args: []string{"--clipboard", "--input"}}, nil
		}
		return Command{}, ErrToolNotFound
	case "windows":
		path, err := lookPath("clip.exe")
		if err != nil {
			return Command{}, ErrToolNotFound
		}
		return Command{Path: path}, nil
	default:
		return Command{}, ErrToolNotFound
	}
}

// DeepLink is the browser address that opens logPath in the viewer.
func DeepLink(publicURL, logPath string) string {
	base := strings.TrimRight(publicURL, "/")
	logPath = strings.TrimPrefix(strings.TrimPrefix(logPath, "#"), "/")
	frag := (&url.URL{Fragment: logPath}).EscapedFragment()
	return base + "/viewer#" + frag
}

// Runner starts a clipboard command with text on its stdin.
type Runner func(ctx context.Context, cmd Command, stdin io.Reader) error

// Copier writes text to the system clipboard.
type Copier struct {
	goos     string
	lookPath func(string) (string, error)
	run      Runner
}

func NewCopier() *Copier {
	return &Copier{goos: runtime.GOOS, lookPath: exec.LookPath, run: runCommand}
}

func (c *Copier) Copy(ctx context.Context, text string) error {
	cmdDef, err := SelectCommand(c.goos, c.lookPath)
	if err != nil {
		return err
	}
	return c.run(ctx, cmdDef, strings.NewReader(text))
}

// CopyLink copies the deep link of logPath and returns it.
func (c *Copier) CopyLink(ctx context.Context, publicURL, logPath string) (string, error) {
	link := DeepLink(publicURL, logPath)
	if err := c.Copy(ctx, link); err != nil {
		return link, err
	}
	return link, nil
}

func Copy(ctx context.Context, text string) error {
	return NewCopier().Copy(ctx, text)
}

func runCommand(ctx context.Context, cmdDef Command, in io.Reader) error {
	cmd := exec.CommandContext(ctx, cmdDef.Path, cmdDef.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("clipboard stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start clipboard command: %w", err)
	}

	if _, err := io.Copy(stdin, in); err != nil {
		_ = stdin.Close()
		_ = cmd.Wait()
		return fmt.Errorf("write clipboard data: %w", err)
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("clipboard command failed: %w", err)
	}
	return nil
}
