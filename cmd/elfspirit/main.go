// Command elfspirit parses, introspects, and rewrites ELF files in place.
// Flag parsing follows the teacher's own idiom (main.go): one flag.*
// per option, each operation selected by its own boolean flag, and the
// target path taken from the last positional argument.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/xyproto/elfspirit"
	"github.com/xyproto/elfspirit/dump"
	"github.com/xyproto/elfspirit/internal/config"
)

func main() {
	var (
		nameFlag     = flag.String("n", "", "section name")
		sizeFlag     = flag.String("z", "0", "size in bytes (accepts 0x prefix)")
		strFlag      = flag.String("s", "", "string or escaped-byte shellcode (\\xNN groups)")
		fileFlag     = flag.String("f", "", "auxiliary file (hook payload, raw segment content)")
		archFlag     = flag.String("a", "x86_64", "architecture for raw-to-ELF (x86_64, aarch64, riscv64)")
		classFlag    = flag.Int("m", 64, "ELF class for raw-to-ELF (32 or 64)")
		endianFlag   = flag.String("e", "little", "endianness for raw-to-ELF (little or big)")
		baseFlag     = flag.String("b", "0", "base address for raw-to-ELF")
		offsetFlag   = flag.String("o", "0", "file offset")
		scopeHeader  = flag.Bool("H", false, "scope: header")
		scopeSec     = flag.Bool("S", false, "scope: sections")
		scopeSeg     = flag.Bool("P", false, "scope: segments")
		scopeSymtab  = flag.Bool("B", false, "scope: symtab")
		scopeDynsym  = flag.Bool("D", false, "scope: dynsym")
		scopeDynamic = flag.Bool("L", false, "scope: dynamic")
		forensic     = flag.Bool("forensic", false, "run the structural anomaly scanner")
		setInterp    = flag.Bool("set-interp", false, "set PT_INTERP/.interp to -s")
		setRpath     = flag.Bool("set-rpath", false, "add a DT_RPATH entry for -s")
		setRunpath   = flag.Bool("set-runpath", false, "add a DT_RUNPATH entry for -s")
		rmSection    = flag.Bool("rm-section", false, "delete the section named -n")
		rmShdr       = flag.Bool("rm-shdr", false, "delete all section headers")
		rmStrip      = flag.Bool("rm-strip", false, "strip every isolated non-shstrtab section")
		refreshHash  = flag.Bool("refresh-hash", false, "rebuild .gnu.hash from .dynsym")
		infectSilvio = flag.Bool("infect-silvio", false, "pad the text segment with the payload in -f")
		infectSkeksi = flag.Bool("infect-skeksi", false, "PIE negative-shift infection with the payload in -f")
		infectData   = flag.Bool("infect-data", false, "data-segment infection with the payload in -f")
		toBin2elf    = flag.Bool("to-bin2elf", false, "wrap the raw file in -f as a minimal ELF")
		injectHook   = flag.Bool("inject-hook", false, "hook the GOT entry for symbol -s with payload -f")
		editHex      = flag.Bool("edit-hex", false, "write raw bytes -s at offset -o")
		editPointer  = flag.Bool("edit-pointer", false, "write a class-width pointer -z at offset -o")
	)
	flag.Parse()
	cfg := config.Load()
	if cfg.Verbose {
		log.SetFlags(log.Ltime | log.Lmicroseconds)
	} else {
		log.SetOutput(os.Stderr)
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: elfspirit [flags] <ELF>")
		os.Exit(2)
	}
	path := args[len(args)-1]

	if *toBin2elf {
		if err := runBin2elf(path, *fileFlag, *archFlag, *classFlag, *endianFlag, *baseFlag); err != nil {
			fatal(err)
		}
		return
	}

	img, err := elf.Open(path, true)
	if err != nil {
		fatal(err)
	}
	defer img.Close()

	v, err := elf.NewView(img)
	if err != nil {
		fatal(err)
	}

	switch {
	case *setInterp:
		err = v.SetInterp(*strFlag)
	case *setRpath:
		err = v.SetRpath(*strFlag, false)
	case *setRunpath:
		err = v.SetRpath(*strFlag, true)
	case *rmSection:
		err = deleteSectionByName(v, *nameFlag)
	case *rmShdr:
		err = v.DeleteAllSectionHeaders()
	case *rmStrip:
		err = v.Strip()
	case *refreshHash:
		err = v.RebuildGnuHash()
	case *infectSilvio:
		err = runInfect(v, *fileFlag, func(payload []byte) error {
			_, e := v.InfectSilvio(payload)
			return e
		})
	case *infectSkeksi:
		err = runInfect(v, *fileFlag, v.InfectSkeksi)
	case *infectData:
		err = runInfect(v, *fileFlag, v.InfectData)
	case *injectHook:
		err = runHook(v, *strFlag, *fileFlag, *offsetFlag)
	case *editHex:
		err = runEditHex(v, *offsetFlag, *strFlag)
	case *editPointer:
		err = runEditPointer(v, *offsetFlag, *sizeFlag)
	case *forensic:
		dump.Forensic(os.Stdout, v)
		return
	default:
		runDump(v, *scopeHeader, *scopeSec, *scopeSeg, *scopeSymtab, *scopeDynsym, *scopeDynamic)
		return
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "elfspirit:", err)
	os.Exit(1)
}

func runDump(v *elf.View, header, sections, segments, symtab, dynsym, dynamic bool) {
	any := header || sections || segments || symtab || dynsym || dynamic
	if !any || header {
		dump.Header(os.Stdout, v)
	}
	if !any || sections {
		dump.Sections(os.Stdout, v)
	}
	if !any || segments {
		dump.Segments(os.Stdout, v)
	}
	if symtab {
		dump.Symtab(os.Stdout, v)
	}
	if dynsym {
		dump.Dynsym(os.Stdout, v)
	}
	if dynamic {
		dump.Dynamic(os.Stdout, v)
	}
}

func deleteSectionByName(v *elf.View, name string) error {
	sh, err := v.SectionByName(name)
	if err != nil {
		return err
	}
	return v.DeleteSection(sh.Index)
}

func runInfect(v *elf.View, payloadPath string, infect func([]byte) error) error {
	payload, err := os.ReadFile(payloadPath)
	if err != nil {
		return err
	}
	return infect(payload)
}

func runHook(v *elf.View, symbol, payloadPath, offsetStr string) error {
	payload, err := os.ReadFile(payloadPath)
	if err != nil {
		return err
	}
	off, err := parseNumber(offsetStr)
	if err != nil {
		return err
	}
	return v.HookGot(symbol, payload, off)
}

func runEditHex(v *elf.View, offsetStr, data string) error {
	off, err := parseNumber(offsetStr)
	if err != nil {
		return err
	}
	bytes, err := parseShellcode(data)
	if err != nil {
		return err
	}
	return v.EditHex(off, bytes)
}

func runEditPointer(v *elf.View, offsetStr, valueStr string) error {
	off, err := parseNumber(offsetStr)
	if err != nil {
		return err
	}
	val, err := parseNumber(valueStr)
	if err != nil {
		return err
	}
	return v.EditPointer(off, val)
}

func runBin2elf(outPath, rawPath, archStr string, class int, endianStr, baseStr string) error {
	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return err
	}
	base, err := parseNumber(baseStr)
	if err != nil {
		return err
	}
	cfg := elf.WrapConfig{
		Arch:   parseArch(archStr),
		Class:  elf.Class32,
		Endian: parseEndian(endianStr),
		BaseVA: base,
	}
	if class == 64 {
		cfg.Class = elf.Class64
	}
	out, err := elf.WrapRaw(raw, cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, out, 0o755)
}

func parseArch(s string) elf.WrapArch {
	switch strings.ToLower(s) {
	case "arm64", "aarch64":
		return elf.WrapArchARM64
	case "riscv64", "risc-v", "riscv":
		return elf.WrapArchRiscv64
	default:
		return elf.WrapArchX86_64
	}
}

func parseEndian(s string) binary.ByteOrder {
	if strings.EqualFold(s, "big") {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// parseNumber accepts both decimal and 0x-prefixed hex, matching the
// CLI surface's "-z N (accepts 0x prefix)" convention.
func parseNumber(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// parseShellcode decodes a mix of literal bytes and \xNN escapes; an
// escape group must be a whole number of 4-character \xNN sequences
// (spec.md §7's KindArgs: "invalid shellcode length").
func parseShellcode(s string) ([]byte, error) {
	var out []byte
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == 'x' {
			if i+3 >= len(s) {
				return nil, &elf.Error{Kind: elf.KindArgs, Op: "main.parseShellcode"}
			}
			b, err := strconv.ParseUint(s[i+2:i+4], 16, 8)
			if err != nil {
				return nil, err
			}
			out = append(out, byte(b))
			i += 4
			continue
		}
		out = append(out, s[i])
		i++
	}
	return out, nil
}
