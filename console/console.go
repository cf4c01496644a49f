// Package console provides an interactive register console for a DW1000.
package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/linht/dw1000-manager/dw1000"
	"github.com/linht/dw1000-manager/plugins"
)

// Console runs commands against a single device
type Console struct {
	dev      *dw1000.Device
	profiles []plugins.Profile
}

// New creates a console for dev
func New(dev *dw1000.Device, profiles []plugins.Profile) *Console {
	return &Console{dev: dev, profiles: profiles}
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "dw1000> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	c.printHelp(out)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(out, "Exiting...")
			cancel()
			return nil
		}

		if !c.Exec(out, line) {
			fmt.Fprintln(out, "Exiting...")
			cancel()
			return nil
		}
	}
}

// Exec runs one command line, writing its output to out. It returns false
// when the console should exit.
func (c *Console) Exec(out io.Writer, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp(out)

	case "id":
		c.cmdID(out)

	case "read", "r":
		c.cmdRead(out, args)

	case "write", "w":
		c.cmdWrite(out, args)

	case "dump", "d":
		c.cmdDump(out)

	case "eui":
		c.cmdEUI(out, args)

	case "verify":
		c.cmdVerify(out, args)

	case "tx":
		c.cmdTx(out, args)

	case "send":
		c.cmdSend(out, args)

	case "map", "m":
		c.cmdMap(out)

	case "profile", "p":
		c.cmdProfile(out, args)

	case "quit", "exit", "q":
		return false

	default:
		fmt.Fprintf(out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}

	return true
}

func (c *Console) printHelp(out io.Writer) {
	fmt.Fprintln(out, `
Commands:
  id                    Read the device ID
  read <reg> [len]      Read a register (name, hex or decimal address)
  write <reg> <hex>     Write bytes to a register
  dump                  Read all monitored registers
  eui [hex]             Show or set the extended unique identifier
  verify <hex>          Write the EUI and read it back
  tx <mode|off>         Enable transmit (standard, delayed, response) or disable
  send <hex>            Load and start transmission of a frame
  map                   Show the register map
  profile [name]        List profiles or apply one
  help                  Show this help
  quit                  Exit`)
}

func (c *Console) cmdID(out io.Writer) {
	id := c.dev.ReadDeviceID()
	if id == dw1000.DeviceIDUnknown {
		fmt.Fprintln(out, "DEV_ID = 0xFFFFFFFF (device not responding)")
		return
	}
	fmt.Fprintf(out, "DEV_ID = 0x%08X (%s)\n", id, plugins.DeviceIDString(id))
}

func (c *Console) cmdRead(out io.Writer, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(out, "Usage: read <reg> [len]")
		fmt.Fprintln(out, "  Example: read SYS_CTRL")
		return
	}

	addr, err := plugins.ParseRegister(args[0])
	if err != nil {
		fmt.Fprintf(out, "Invalid register: %v\n", err)
		return
	}

	length := 1
	if r, ok := dw1000.LookupRegister(addr); ok {
		length = r.MaxLength
	}
	if len(args) > 1 {
		length, err = strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(out, "Invalid length: %s\n", args[1])
			return
		}
	}

	data, err := c.dev.ReadRegister(addr, length)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%s = %x\n", dw1000.RegisterName(addr), data)
}

func (c *Console) cmdWrite(out io.Writer, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(out, "Usage: write <reg> <hex>")
		fmt.Fprintln(out, "  Example: write PANADR cafe0100")
		return
	}

	addr, err := plugins.ParseRegister(args[0])
	if err != nil {
		fmt.Fprintf(out, "Invalid register: %v\n", err)
		return
	}

	data, err := plugins.ParseHexBytes(strings.Join(args[1:], ""))
	if err != nil {
		fmt.Fprintf(out, "Invalid value: %v\n", err)
		return
	}

	if err := c.dev.WriteRegister(addr, data); err != nil {
		fmt.Fprintf(out, "Write failed: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%s <- %x\n", dw1000.RegisterName(addr), data)
}

func (c *Console) cmdDump(out io.Writer) {
	snap, err := c.dev.ReadAllRegisters()
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	snap.WriteTo(out)
}

func (c *Console) cmdEUI(out io.Writer, args []string) {
	if len(args) == 0 {
		eui, err := c.dev.ReadEUI()
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "EUI = %x\n", eui[:])
		return
	}

	eui, err := plugins.ParseEUI(strings.Join(args, ""))
	if err != nil {
		fmt.Fprintf(out, "Invalid EUI: %v\n", err)
		return
	}
	if err := c.dev.WriteEUI(eui); err != nil {
		fmt.Fprintf(out, "Write failed: %v\n", err)
		return
	}
	fmt.Fprintf(out, "EUI <- %x\n", eui[:])
}

func (c *Console) cmdVerify(out io.Writer, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(out, "Usage: verify <hex>")
		return
	}

	eui, err := plugins.ParseEUI(strings.Join(args, ""))
	if err != nil {
		fmt.Fprintf(out, "Invalid EUI: %v\n", err)
		return
	}
	if err := c.dev.WriteAndVerifyEUI(eui); err != nil {
		fmt.Fprintf(out, "Verify failed: %v\n", err)
		return
	}
	fmt.Fprintf(out, "EUI %x written and verified\n", eui[:])
}

func (c *Console) cmdTx(out io.Writer, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(out, "Usage: tx <standard|delayed|response|off>")
		return
	}

	if strings.EqualFold(args[0], "off") {
		if err := c.dev.DisableTxMode(); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintln(out, "Transmit disabled")
		return
	}

	mode, err := dw1000.ParseTxMode(args[0])
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	if err := c.dev.EnableTxMode(mode); err != nil {
		fmt.Fprintf(out, "Error: %v (re-issue tx or tx off)\n", err)
		return
	}
	fmt.Fprintf(out, "Transmit enabled (%s)\n", mode)
}

func (c *Console) cmdSend(out io.Writer, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(out, "Usage: send <hex>")
		return
	}

	frame, err := plugins.ParseHexBytes(strings.Join(args, ""))
	if err != nil {
		fmt.Fprintf(out, "Invalid frame: %v\n", err)
		return
	}
	if err := c.dev.SendFrame(frame); err != nil {
		fmt.Fprintf(out, "Send failed: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Sent %d bytes\n", len(frame))
}

func (c *Console) cmdMap(out io.Writer) {
	for _, r := range dw1000.Registers() {
		fmt.Fprintf(out, "0x%02X  %-11s %5d  %-3s  %s\n",
			r.Address, r.Name, r.MaxLength, r.Access, r.Description)
	}
}

func (c *Console) cmdProfile(out io.Writer, args []string) {
	if len(args) == 0 {
		if len(c.profiles) == 0 {
			fmt.Fprintln(out, "No profiles loaded")
			return
		}
		for _, p := range c.profiles {
			fmt.Fprintf(out, "  %-16s %d writes  %s\n", p.Name, len(p.Writes), p.Description)
		}
		return
	}

	p, ok := plugins.FindProfile(c.profiles, args[0])
	if !ok {
		fmt.Fprintf(out, "Unknown profile: %s\n", args[0])
		return
	}

	n, err := plugins.ApplyProfile(c.dev, p)
	if err != nil {
		fmt.Fprintf(out, "Profile %s stopped after %d writes: %v\n", p.Name, n, err)
		return
	}
	fmt.Fprintf(out, "Profile %s applied (%d writes)\n", p.Name, n)
}
