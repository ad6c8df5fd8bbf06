package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/ngamolsky/Curbd/client"
)

const helpText = `commands:
  add <path...>   add images (oversized ones are compressed)
  remove <n>      remove image n
  text <words>    set additional instructions
  submit          generate the post
  reset           start over
  status          show the form
  help            show this help
  quit            exit`

type shell struct {
	session *client.Session
	in      *bufio.Scanner
	out     io.Writer
}

func newShell(session *client.Session, in io.Reader, out io.Writer) *shell {
	return &shell{session: session, in: bufio.NewScanner(in), out: out}
}

func (sh *shell) run(ctx context.Context) {
	fmt.Fprintln(sh.out, "curbd: describe the things you are giving away. Type help for commands.")
	for {
		fmt.Fprint(sh.out, "> ")
		if !sh.in.Scan() {
			fmt.Fprintln(sh.out)
			return
		}
		if ctx.Err() != nil {
			return
		}
		if quit := sh.exec(ctx, sh.in.Text()); quit {
			return
		}
	}
}

// exec runs one command line and reports whether the shell should exit.
func (sh *shell) exec(ctx context.Context, line string) bool {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "":
	case "add":
		if rest == "" {
			fmt.Fprintln(sh.out, "usage: add <path...>")
			return false
		}
		if err := addPaths(sh.session, strings.Fields(rest)); err != nil {
			if errors.Is(err, client.ErrAlreadySucceeded) {
				sh.report(err)
				return false
			}
			fmt.Fprintf(sh.out, "! %s\n", client.MsgProcessingFailed)
		}
		printForm(sh.out, sh.session.Snapshot())
	case "remove":
		n, err := strconv.Atoi(rest)
		if err != nil {
			fmt.Fprintln(sh.out, "usage: remove <n>")
			return false
		}
		if err := sh.session.RemoveImage(n - 1); err != nil {
			sh.report(err)
			return false
		}
		printForm(sh.out, sh.session.Snapshot())
	case "text":
		if err := sh.session.SetInput(rest); err != nil {
			sh.report(err)
		}
	case "submit":
		if !sh.session.CanSubmit() {
			fmt.Fprintln(sh.out, "Submit is disabled: add at least one image, or reset after a result.")
			return false
		}
		fmt.Fprintln(sh.out, "Generating...")
		if _, err := sh.session.Submit(ctx); err != nil {
			printBanner(sh.out, sh.session.Snapshot())
			return false
		}
		printResult(sh.out, sh.session.Snapshot())
	case "reset":
		if err := sh.session.Reset(); err != nil {
			zap.L().Warn("reset did not release every preview", zap.Error(err))
		}
		fmt.Fprintln(sh.out, "Form cleared.")
	case "status":
		snap := sh.session.Snapshot()
		if snap.State == client.StateSucceeded {
			printResult(sh.out, snap)
		} else {
			printBanner(sh.out, snap)
			printForm(sh.out, snap)
		}
	case "help":
		fmt.Fprintln(sh.out, helpText)
	case "quit", "exit":
		return true
	default:
		fmt.Fprintf(sh.out, "unknown command %q, type help\n", cmd)
	}
	return false
}

func (sh *shell) report(err error) {
	switch {
	case errors.Is(err, client.ErrAlreadySucceeded):
		fmt.Fprintln(sh.out, "A post is already shown. Type reset to start over.")
	case errors.Is(err, client.ErrNoSuchImage):
		fmt.Fprintln(sh.out, "No such image.")
	default:
		fmt.Fprintf(sh.out, "! %v\n", err)
	}
}

// addPaths loads every readable image and hands them to the session. Files
// that cannot be loaded are skipped and reported with the session's failures.
func addPaths(session *client.Session, paths []string) error {
	var (
		images []*client.PendingImage
		errs   []error
	)
	for _, p := range paths {
		img, err := client.LoadImageFile(p)
		if err != nil {
			zap.L().Error("failed to load image", zap.String("path", p), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		images = append(images, img)
	}
	if len(images) > 0 {
		if err := session.AddImages(images); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func printForm(w io.Writer, snap client.Snapshot) {
	if len(snap.Images) == 0 {
		fmt.Fprintln(w, "No images yet.")
	}
	for i, img := range snap.Images {
		fmt.Fprintf(w, "%d. %s (%s, %s) preview: %s\n", i+1, img.Name, img.MIMEType, humanize.IBytes(uint64(img.Size())), snap.Previews[i])
	}
	if snap.Input != "" {
		fmt.Fprintf(w, "Instructions: %s\n", snap.Input)
	}
	fmt.Fprintf(w, "[%s] submit %s\n", snap.State, enabled(snap.CanSubmit))
}

func printResult(w io.Writer, snap client.Snapshot) {
	if snap.Post == nil {
		return
	}
	fmt.Fprintln(w, snap.Post.Title)
	fmt.Fprintln(w, strings.Repeat("=", len(snap.Post.Title)))
	fmt.Fprintln(w, snap.Post.Description)
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Join(snap.Post.Hashtags, " "))
}

func printBanner(w io.Writer, snap client.Snapshot) {
	if snap.Error != "" {
		fmt.Fprintf(w, "! %s\n", snap.Error)
	}
}

func enabled(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}
