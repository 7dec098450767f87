package elf

import "encoding/binary"

// wrap.go is C11, the raw-to-ELF wrapper: wraps a raw binary blob in a
// minimal two-PT_LOAD ELF container. Grounded on the teacher's
// Architecture/Target selection idiom (arch.go, target.go) — generalized
// from "pick a code generator for this architecture" to "pick the right
// e_machine/class/endianness triple for this wrapper".

// WrapArch selects the target machine for WrapRaw, mirroring the
// teacher's NewArchitecture switch (arch.go).
type WrapArch int

const (
	WrapArchX86_64 WrapArch = iota
	WrapArchARM64
	WrapArchRiscv64
)

func (a WrapArch) machine() uint16 {
	switch a {
	case WrapArchARM64:
		return 183 // EM_AARCH64
	case WrapArchRiscv64:
		return 243 // EM_RISCV
	default:
		return 62 // EM_X86_64
	}
}

// WrapConfig carries the `-a/-m/-e/-b` CLI parameters for the raw-to-ELF
// wrapper (spec.md §4.11/§6).
type WrapConfig struct {
	Arch    WrapArch
	Class   Class
	Endian  binary.ByteOrder
	BaseVA  uint64
}

// WrapRaw builds a minimal ELF executable around a raw binary blob: one
// R|X PT_LOAD carrying the blob as code, headers living in a second
// leading R LOAD, entry point at the blob's base.
func WrapRaw(blob []byte, cfg WrapConfig) ([]byte, error) {
	const op = "wrap.WrapRaw"
	if len(blob) == 0 {
		return nil, errOf(KindArgs, op)
	}
	if cfg.Class != Class32 && cfg.Class != Class64 {
		return nil, errOf(KindElfClass, op)
	}

	ehSize := ehdrSize(cfg.Class)
	phEntSize := phdrEntSize(cfg.Class)
	phCount := 2
	headerBlockSize := uint64(ehSize + phEntSize*phCount)
	headerPage := ceilPage(headerBlockSize)

	base := cfg.BaseVA
	if base == 0 {
		base = 0x400000
	}
	codeOffset := headerPage
	codeVaddr := base + headerPage

	total := codeOffset + uint64(len(blob))
	buf := make([]byte, total)

	eh := &Ehdr{
		Type:      ET_EXEC,
		Machine:   cfg.Arch.machine(),
		Version:   1,
		Entry:     codeVaddr,
		Phoff:     uint64(ehSize),
		Ehsize:    uint16(ehSize),
		Phentsize: uint16(phEntSize),
		Phnum:     uint16(phCount),
	}
	eh.Ident[EI_MAG0] = elfMagic[0]
	eh.Ident[EI_MAG1] = elfMagic[1]
	eh.Ident[EI_MAG2] = elfMagic[2]
	eh.Ident[EI_MAG3] = elfMagic[3]
	if cfg.Class == Class32 {
		eh.Ident[EI_CLASS] = ELFCLASS32
	} else {
		eh.Ident[EI_CLASS] = ELFCLASS64
	}
	if cfg.Endian == binary.BigEndian {
		eh.Ident[EI_DATA] = ELFDATA2MSB
	} else {
		eh.Ident[EI_DATA] = ELFDATA2LSB
	}
	eh.Ident[EI_VERSION] = 1

	if err := eh.Put(buf); err != nil {
		return nil, wrapErr(KindMemory, op, err)
	}

	bo := eh.Endian()
	headerLoad := Phdr{
		Type:   PT_LOAD,
		Flags:  PF_R,
		Offset: 0,
		Vaddr:  base,
		Paddr:  base,
		Filesz: headerBlockSize,
		Memsz:  headerBlockSize,
		Align:  PageSize,
	}
	codeLoad := Phdr{
		Type:   PT_LOAD,
		Flags:  PF_R | PF_X,
		Offset: codeOffset,
		Vaddr:  codeVaddr,
		Paddr:  codeVaddr,
		Filesz: uint64(len(blob)),
		Memsz:  uint64(len(blob)),
		Align:  PageSize,
	}
	if err := putPhdr(buf, ehSize, bo, cfg.Class, headerLoad); err != nil {
		return nil, wrapErr(KindMemory, op, err)
	}
	if err := putPhdr(buf, ehSize+phEntSize, bo, cfg.Class, codeLoad); err != nil {
		return nil, wrapErr(KindMemory, op, err)
	}

	copy(buf[codeOffset:], blob)
	return buf, nil
}
