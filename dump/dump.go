// Package dump formats a parsed ELF view as human-readable tables, driven
// purely by the read-only accessors of the engine's typed view and index
// managers. It contains no parsing or mutation logic of its own (SPEC_FULL.md
// §4.13): spec.md places the pretty-printer out of scope for the core's
// design, but the CLI's scope-selector flags (-H/-S/-P/...) must still
// produce output somewhere, so this package is that "simple glue".
package dump

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/xyproto/elfspirit"
)

func newTabwriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// Header writes the ELF header's fields as a table.
func Header(w io.Writer, v *elf.View) {
	tw := newTabwriter(w)
	defer tw.Flush()
	typ, _ := v.Ehdr.ElfType()
	fmt.Fprintf(tw, "Class:\t%s\n", v.Class)
	fmt.Fprintf(tw, "Type:\t%d\n", typ)
	fmt.Fprintf(tw, "Machine:\t%d\n", v.Ehdr.Machine)
	fmt.Fprintf(tw, "Entry:\t0x%x\n", v.Ehdr.Entry)
	fmt.Fprintf(tw, "Phoff:\t0x%x\n", v.Ehdr.Phoff)
	fmt.Fprintf(tw, "Shoff:\t0x%x\n", v.Ehdr.Shoff)
	fmt.Fprintf(tw, "Phnum:\t%d\n", v.Ehdr.Phnum)
	fmt.Fprintf(tw, "Shnum:\t%d\n", v.Ehdr.Shnum)
	fmt.Fprintf(tw, "Shstrndx:\t%d\n", v.Ehdr.Shstrndx)
}

// Sections writes every section header as a table row.
func Sections(w io.Writer, v *elf.View) {
	tw := newTabwriter(w)
	defer tw.Flush()
	fmt.Fprintln(tw, "Idx\tName\tType\tAddr\tOffset\tSize\tFlags")
	for i, s := range v.Shdrs {
		name, _ := v.ShstrtabString(int(s.Name))
		fmt.Fprintf(tw, "%d\t%s\t%d\t0x%x\t0x%x\t0x%x\t0x%x\n",
			i, name, s.Type, s.Addr, s.Offset, s.Size, s.Flags)
	}
}

// Segments writes every program header as a table row.
func Segments(w io.Writer, v *elf.View) {
	tw := newTabwriter(w)
	defer tw.Flush()
	fmt.Fprintln(tw, "Idx\tType\tOffset\tVaddr\tFilesz\tMemsz\tFlags")
	for i, p := range v.Phdrs {
		fmt.Fprintf(tw, "%d\t%d\t0x%x\t0x%x\t0x%x\t0x%x\t0x%x\n",
			i, p.Type, p.Offset, p.Vaddr, p.Filesz, p.Memsz, p.Flags)
	}
}

// Dynsym writes every dynamic symbol table entry as a table row.
func Dynsym(w io.Writer, v *elf.View) {
	tw := newTabwriter(w)
	defer tw.Flush()
	fmt.Fprintln(tw, "Idx\tName\tValue\tSize\tBind\tType\tShndx")
	for i, s := range v.DynsymSyms {
		name, _ := v.DynstrString(int(s.Name))
		fmt.Fprintf(tw, "%d\t%s\t0x%x\t%d\t%d\t%d\t%d\n",
			i, name, s.Value, s.Size, elf.StBind(s.Info), elf.StType(s.Info), s.Shndx)
	}
}

// Symtab writes every static symbol table entry as a table row.
func Symtab(w io.Writer, v *elf.View) {
	tw := newTabwriter(w)
	defer tw.Flush()
	fmt.Fprintln(tw, "Idx\tName\tValue\tSize\tBind\tType\tShndx")
	for i, s := range v.SymtabSyms {
		name, _ := v.StrtabString(int(s.Name))
		fmt.Fprintf(tw, "%d\t%s\t0x%x\t%d\t%d\t%d\t%d\n",
			i, name, s.Value, s.Size, elf.StBind(s.Info), elf.StType(s.Info), s.Shndx)
	}
}

// Dynamic writes the .dynamic array as a table, resolving DT_NEEDED/
// DT_SONAME/DT_RPATH/DT_RUNPATH entries' string values via .dynstr.
func Dynamic(w io.Writer, v *elf.View) {
	tw := newTabwriter(w)
	defer tw.Flush()
	fmt.Fprintln(tw, "Tag\tValue\tString")
	for _, d := range v.Dynamic {
		str := ""
		switch d.Tag {
		case elf.DT_NEEDED, elf.DT_SONAME, elf.DT_RPATH, elf.DT_RUNPATH:
			str, _ = v.DynstrString(int(d.Val))
		}
		fmt.Fprintf(tw, "%d\t0x%x\t%s\n", d.Tag, d.Val, str)
	}
}

// Forensic writes the object classification and every anomaly found by
// Scan.
func Forensic(w io.Writer, v *elf.View) {
	tw := newTabwriter(w)
	defer tw.Flush()
	fmt.Fprintf(tw, "Classification:\t%s\n", v.Classify())
	anomalies := v.Scan()
	if len(anomalies) == 0 {
		fmt.Fprintln(tw, "Anomalies:\tnone")
		return
	}
	for _, a := range anomalies {
		fmt.Fprintf(tw, "Anomaly:\t%s: %s\n", a.Kind, a.Detail)
	}
}
