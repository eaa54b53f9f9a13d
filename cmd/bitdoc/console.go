package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/tidwall/jsonc"

	"github.com/provide-io/bitdoc/go/bitdoc/internal/replparse"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/decode"
	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/grid"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/groups"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/render"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/report"
)

var errQuit = errors.New("quit")

// console executes session commands against a workspace and prints
// status lines.
type console struct {
	ws       *pkg.Workspace
	renderer *render.Renderer
	out      io.Writer
	encoding string
	now      func() time.Time
	logger   hclog.Logger
}

type consoleCommand struct {
	usage   string
	summary string
	failure string
	run     func(c *console, cmd replparse.Command) error
}

var consoleCommands map[string]consoleCommand

func init() {
	consoleCommands = map[string]consoleCommand{
		"help":        {"help", "list commands", "Help", (*console).help},
		"show":        {"show", "draw the grid and groups", "Show", (*console).show},
		"toggle":      {"toggle <byte.bit>...", "flip bits", "Toggle", (*console).toggle},
		"set":         {"set <byte.bit> <0|1>", "write one bit", "Set", (*console).set},
		"hex":         {"hex [text]", "print or load the hex value (non-hex characters are dropped)", "Hex", (*console).hex},
		"add-byte":    {"add-byte", "append a zero byte", "Add byte", (*console).addByte},
		"remove-byte": {"remove-byte", "remove the last byte", "Remove byte", (*console).removeByte},
		"bit-order":   {"bit-order <msb|lsb>", "set the bit order", "Bit order", (*console).bitOrder},
		"byte-order":  {"byte-order <msbyte|lsbyte>", "set the byte order", "Byte order", (*console).byteOrder},
		"select":      {"select <byte.bit>...", "toggle bits in the selection", "Select", (*console).selectBits},
		"clear":       {"clear", "empty the selection", "Clear", (*console).clearSelection},
		"group":       {"group [label]", "group the selected bits", "Group", (*console).group},
		"label":       {"label <id> <text>", "rename a group", "Label", (*console).label},
		"type":        {"type <id> <flags|value>", "change a group's type", "Type", (*console).setType},
		"decoder":     {"decoder <id> <source|@file>", "replace a value decoder", "Decoder", (*console).decoder},
		"flags":       {"flags <id> <json|@file>", "replace a flags description", "Flags", (*console).flags},
		"flag":        {"flag <id> <bit> <on> [off]", "set the labels of one flag", "Flag", (*console).flag},
		"delete":      {"delete <id>", "delete a group", "Delete", (*console).deleteGroup},
		"detail":      {"detail <id>", "show a group and its source", "Detail", (*console).detail},
		"export":      {"export [encoding] [--set-bits]", "print a configuration string", "Export", (*console).export},
		"import":      {"import <string|@file> [encoding]", "load a configuration string", "Import", (*console).importConfig},
		"report":      {"report <pdf|md|html> [file]", "write a group report", "Report", (*console).report},
		"save":        {"save", "write the saved session now", "Save", (*console).save},
		"reset":       {"reset", "start over with one zero byte", "Reset", (*console).reset},
		"quit":        {"quit", "leave the session", "Quit", (*console).quit},
	}
	consoleCommands["exit"] = consoleCommands["quit"]
}

// Execute runs one line and reports whether the session should end.
func (c *console) Execute(line string) bool {
	cmd, err := replparse.Parse(line)
	if err != nil {
		c.printf("Parse failed: %v\n", err)
		return false
	}
	if cmd.Empty() {
		return false
	}
	entry, ok := consoleCommands[cmd.Name]
	if !ok {
		c.printf("Unknown command %q. Type help for a list.\n", cmd.Name)
		return false
	}
	c.logger.Trace("Executing command", "command", cmd.Name, "args", len(cmd.Args))
	if err := entry.run(c, cmd); err != nil {
		if errors.Is(err, errQuit) {
			return true
		}
		c.printf("%s failed: %v\n", entry.failure, err)
	}
	return false
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func need(cmd replparse.Command, n int, usage string) error {
	if len(cmd.Args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

// readArg returns the contents of @file arguments and the argument itself
// otherwise.
func readArg(arg string) (string, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return arg, nil
}

// flagsSource reads a flags description that may carry comments and
// trailing commas and returns it as plain JSON.
func flagsSource(arg string) (string, error) {
	text, err := readArg(arg)
	if err != nil {
		return "", err
	}
	data := jsonc.ToJSON([]byte(text))
	if !json.Valid(data) {
		return "", fmt.Errorf("flags description is not valid JSON")
	}
	return strings.TrimSpace(string(data)), nil
}

func positions(args []string) ([]grid.Position, error) {
	out := make([]grid.Position, 0, len(args))
	for _, a := range args {
		p, err := grid.ParsePosition(a)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *console) group(cmd replparse.Command) error {
	g, err := c.ws.Session.GroupSelection(cmd.Rest(0))
	if err != nil {
		return err
	}
	c.printf("Created %s (%s) with %d bits.\n", g.ID, g.Label, len(g.Bits))
	return nil
}

func (c *console) lookup(id string) (*groups.Group, error) {
	g, ok := c.ws.Session.Store().Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", bverrors.ErrGroupNotFound, id)
	}
	return g, nil
}

// =================================
// Handlers
// =================================

func (c *console) help(replparse.Command) error {
	names := make([]string, 0, len(consoleCommands))
	for name := range consoleCommands {
		if name != "exit" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		entry := consoleCommands[name]
		c.printf("  %-34s %s\n", entry.usage, entry.summary)
	}
	return nil
}

func (c *console) show(replparse.Command) error {
	c.printf("%s", c.renderer.View(c.ws.Session))
	return nil
}

func (c *console) toggle(cmd replparse.Command) error {
	if err := need(cmd, 1, consoleCommands["toggle"].usage); err != nil {
		return err
	}
	ps, err := positions(cmd.Args)
	if err != nil {
		return err
	}
	for _, p := range ps {
		v, err := c.ws.Session.ToggleBit(p)
		if err != nil {
			return err
		}
		c.printf("%s = %d\n", p, v)
	}
	return nil
}

func (c *console) set(cmd replparse.Command) error {
	if err := need(cmd, 2, consoleCommands["set"].usage); err != nil {
		return err
	}
	p, err := grid.ParsePosition(cmd.Arg(0))
	if err != nil {
		return err
	}
	v, err := strconv.Atoi(cmd.Arg(1))
	if err != nil {
		return fmt.Errorf("%w: %q", bverrors.ErrInvalidBitValue, cmd.Arg(1))
	}
	if err := c.ws.Session.SetBit(p, v); err != nil {
		return err
	}
	c.printf("%s = %d\n", p, v)
	return nil
}

func (c *console) hex(cmd replparse.Command) error {
	if len(cmd.Args) > 0 {
		if err := c.ws.Session.SetHex(grid.SanitizeHex(cmd.Rest(0))); err != nil {
			return err
		}
	}
	c.printf("%s\n", c.ws.Session.Grid().Hex())
	return nil
}

func (c *console) addByte(replparse.Command) error {
	c.ws.Session.AddByte()
	c.printf("%d bytes.\n", c.ws.Session.Grid().Len())
	return nil
}

func (c *console) removeByte(replparse.Command) error {
	if err := c.ws.Session.RemoveLastByte(); err != nil {
		return err
	}
	c.printf("%d bytes.\n", c.ws.Session.Grid().Len())
	return nil
}

func (c *console) bitOrder(cmd replparse.Command) error {
	switch order := grid.BitOrder(cmd.Arg(0)); order {
	case grid.BitOrderMSB, grid.BitOrderLSB:
		c.ws.Session.SetBitOrder(order)
		c.printf("Bit order %s.\n", order)
		return nil
	}
	return fmt.Errorf("usage: %s", consoleCommands["bit-order"].usage)
}

func (c *console) byteOrder(cmd replparse.Command) error {
	switch order := grid.ByteOrder(cmd.Arg(0)); order {
	case grid.ByteOrderMSByte, grid.ByteOrderLSByte:
		c.ws.Session.SetByteOrder(order)
		c.printf("Byte order %s, value %s.\n", order, c.ws.Session.Grid().Hex())
		return nil
	}
	return fmt.Errorf("usage: %s", consoleCommands["byte-order"].usage)
}

func (c *console) selectBits(cmd replparse.Command) error {
	ps, err := positions(cmd.Args)
	if err != nil {
		return err
	}
	for _, p := range ps {
		if _, err := c.ws.Session.ToggleSelect(p); err != nil {
			return err
		}
	}
	c.printf("Selected: %s\n", render.FormatBits(c.ws.Session.Selection()))
	return nil
}

func (c *console) clearSelection(replparse.Command) error {
	c.ws.Session.ClearSelection()
	c.printf("Selection cleared.\n")
	return nil
}

func (c *console) label(cmd replparse.Command) error {
	if err := need(cmd, 2, consoleCommands["label"].usage); err != nil {
		return err
	}
	text := cmd.Rest(1)
	return c.ws.Session.UpdateGroup(cmd.Arg(0), groups.Patch{Label: &text})
}

func (c *console) setType(cmd replparse.Command) error {
	if err := need(cmd, 2, consoleCommands["type"].usage); err != nil {
		return err
	}
	typ := groups.Type(cmd.Arg(1))
	if typ != groups.TypeFlags && typ != groups.TypeValue {
		return fmt.Errorf("%w: %q", bverrors.ErrInvalidType, cmd.Arg(1))
	}
	return c.ws.Session.UpdateGroup(cmd.Arg(0), groups.Patch{Type: &typ})
}

func (c *console) decoder(cmd replparse.Command) error {
	if err := need(cmd, 2, consoleCommands["decoder"].usage); err != nil {
		return err
	}
	source, err := readArg(cmd.Rest(1))
	if err != nil {
		return err
	}
	if err := c.ws.Session.UpdateGroup(cmd.Arg(0), groups.Patch{DecoderSource: &source}); err != nil {
		return err
	}
	return c.printOutput(cmd.Arg(0))
}

func (c *console) flags(cmd replparse.Command) error {
	if err := need(cmd, 2, consoleCommands["flags"].usage); err != nil {
		return err
	}
	source, err := flagsSource(cmd.Rest(1))
	if err != nil {
		return err
	}
	if err := c.ws.Session.UpdateGroup(cmd.Arg(0), groups.Patch{FlagsDescriptionSource: &source}); err != nil {
		return err
	}
	return c.printOutput(cmd.Arg(0))
}

func (c *console) flag(cmd replparse.Command) error {
	if err := need(cmd, 3, consoleCommands["flag"].usage); err != nil {
		return err
	}
	bit, err := strconv.Atoi(cmd.Arg(1))
	if err != nil || bit < 0 {
		return fmt.Errorf("%w: flag bit %q", bverrors.ErrPositionRange, cmd.Arg(1))
	}
	row := decode.FlagRow{Bit: bit, On: cmd.Arg(2), Off: cmd.Arg(3)}
	if err := c.ws.Session.SetFlagLabels(cmd.Arg(0), row); err != nil {
		return err
	}
	return c.printOutput(cmd.Arg(0))
}

func (c *console) printOutput(id string) error {
	out, ok := c.ws.Session.Output(id)
	if !ok {
		return fmt.Errorf("%w: %s", bverrors.ErrGroupNotFound, id)
	}
	if text := out.Display(); text != "" {
		c.printf("%s\n", text)
	}
	if out.Error != "" {
		c.printf("Error: %s\n", out.Error)
	}
	return nil
}

func (c *console) deleteGroup(cmd replparse.Command) error {
	if _, err := c.lookup(cmd.Arg(0)); err != nil {
		return err
	}
	c.ws.Session.DeleteGroup(cmd.Arg(0))
	c.printf("Deleted %s.\n", cmd.Arg(0))
	return nil
}

func (c *console) detail(cmd replparse.Command) error {
	g, err := c.lookup(cmd.Arg(0))
	if err != nil {
		return err
	}
	out, _ := c.ws.Session.Output(g.ID)
	c.printf("%s", c.renderer.Detail(g, out))
	return nil
}

func (c *console) export(cmd replparse.Command) error {
	encoding, setBits := c.encoding, false
	for _, a := range cmd.Args {
		if a == "--set-bits" {
			setBits = true
		} else {
			encoding = a
		}
	}
	text, err := c.ws.Session.ExportString(encoding, setBits)
	if err != nil {
		return err
	}
	c.printf("%s\n", text)
	return nil
}

func (c *console) importConfig(cmd replparse.Command) error {
	if err := need(cmd, 1, consoleCommands["import"].usage); err != nil {
		return err
	}
	text, err := readArg(cmd.Arg(0))
	if err != nil {
		return err
	}
	encoding := c.encoding
	if cmd.Arg(1) != "" {
		encoding = cmd.Arg(1)
	}
	if err := c.ws.Session.ImportString(text, encoding); err != nil {
		return err
	}
	c.printf("Imported %d bytes and %d groups.\n", c.ws.Session.Grid().Len(), c.ws.Session.Store().Len())
	return nil
}

func (c *console) report(cmd replparse.Command) error {
	if err := need(cmd, 1, consoleCommands["report"].usage); err != nil {
		return err
	}
	path, err := writeReport(c.ws, cmd.Arg(0), cmd.Arg(1), c.now())
	if err != nil {
		return err
	}
	c.printf("Wrote %s.\n", path)
	return nil
}

func (c *console) save(replparse.Command) error {
	if !c.ws.Locked() {
		return pkg.ErrSlotLocked
	}
	if !c.ws.Save() {
		return fmt.Errorf("could not write %s", c.ws.Slot.Path())
	}
	c.printf("Saved to %s.\n", c.ws.Slot.Path())
	return nil
}

func (c *console) reset(replparse.Command) error {
	if c.ws.Locked() {
		c.ws.Reset()
	} else {
		c.ws.Session.Reset()
	}
	c.printf("Session reset.\n")
	return nil
}

func (c *console) quit(replparse.Command) error {
	return errQuit
}

// writeReport renders the workspace groups to path, or to the default
// report file name when path is empty, and returns the path written.
func writeReport(ws *pkg.Workspace, format, path string, now time.Time) (string, error) {
	doc, err := report.FromSession(ws.Session, now)
	if err != nil {
		return "", err
	}
	format = strings.ToLower(format)
	if _, ok := report.Formats[format]; !ok {
		return "", fmt.Errorf("%w: %q", bverrors.ErrUnknownFormat, format)
	}
	if path == "" {
		path = report.Filename(now, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := report.Write(f, doc, format); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	return path, f.Close()
}
