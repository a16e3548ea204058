package gba

import (
	"bytes"
	"encoding/binary"
	"fmt"

	emucore "github.com/halverson/corekit/api"
)

// CPSR condition flag bits
const (
	flagN uint32 = 1 << 31
	flagZ uint32 = 1 << 30
	flagC uint32 = 1 << 29
	flagV uint32 = 1 << 28
)

// Register aliases
const (
	regSP = 13
	regLR = 14
	regPC = 15
)

// CPU is an ARM7 model covering the ARM-state data-processing, branch and
// single-transfer groups. Thumb state, coprocessors and interrupt dispatch
// are not modelled; instructions outside the subset execute as 1-cycle
// no-ops so that stepping over arbitrary images stays deterministic.
type CPU struct {
	board *Board

	r    [16]uint32
	cpsr uint32
}

// NewCPU constructs a CPU wired to the given board. The board must be a
// *gba.Board.
func NewCPU(board emucore.Board) *CPU {
	return &CPU{board: board.(*Board)}
}

// Reset puts the register file into the post-BIOS state: SP in IWRAM,
// execution at the cartridge entry point.
func (c *CPU) Reset() {
	c.r = [16]uint32{}
	c.r[regSP] = 0x03007F00
	c.r[regPC] = 0x08000000
	c.cpsr = 0x1F // system mode
}

// Step executes the next instruction and returns the cycles consumed.
func (c *CPU) Step() int {
	instr := c.board.Read32(c.r[regPC])
	c.r[regPC] += 4

	if !c.conditionMet(instr >> 28) {
		return 1
	}

	switch {
	case instr&0x0E000000 == 0x0A000000: // B/BL
		return c.branch(instr)
	case instr&0x0C000000 == 0x04000000: // LDR/STR
		return c.singleTransfer(instr)
	case instr&0x0C000000 == 0x00000000: // data processing
		return c.dataProcessing(instr)
	default:
		return 1
	}
}

// conditionMet evaluates the 4-bit ARM condition code.
func (c *CPU) conditionMet(cond uint32) bool {
	n := c.cpsr&flagN != 0
	z := c.cpsr&flagZ != 0
	cy := c.cpsr&flagC != 0
	v := c.cpsr&flagV != 0

	switch cond {
	case 0x0: // EQ
		return z
	case 0x1: // NE
		return !z
	case 0x2: // CS
		return cy
	case 0x3: // CC
		return !cy
	case 0x4: // MI
		return n
	case 0x5: // PL
		return !n
	case 0x6: // VS
		return v
	case 0x7: // VC
		return !v
	case 0x8: // HI
		return cy && !z
	case 0x9: // LS
		return !cy || z
	case 0xA: // GE
		return n == v
	case 0xB: // LT
		return n != v
	case 0xC: // GT
		return !z && n == v
	case 0xD: // LE
		return z || n != v
	default: // AL and the unused NV encoding
		return true
	}
}

// branch executes B and BL. The offset is a signed 24-bit word count
// relative to PC+8.
func (c *CPU) branch(instr uint32) int {
	offset := int32(instr<<8) >> 6 // sign-extend and convert to bytes
	if instr&0x01000000 != 0 {     // link
		c.r[regLR] = c.r[regPC]
	}
	c.r[regPC] = uint32(int32(c.r[regPC]) + 4 + offset)
	return 3
}

// singleTransfer executes LDR and STR with immediate offset addressing.
// Register-offset forms fall back to a zero offset.
func (c *CPU) singleTransfer(instr uint32) int {
	rn := instr >> 16 & 0xF
	rd := instr >> 12 & 0xF

	var offset uint32
	if instr&0x02000000 == 0 { // immediate offset
		offset = instr & 0xFFF
	}

	base := c.r[rn]
	if rn == regPC {
		base += 4
	}

	addr := base
	if instr&0x01000000 != 0 { // pre-indexed
		if instr&0x00800000 != 0 {
			addr += offset
		} else {
			addr -= offset
		}
	}

	if instr&0x00100000 != 0 { // load
		if instr&0x00400000 != 0 { // byte
			c.r[rd] = uint32(c.board.Read8(addr))
		} else {
			c.r[rd] = c.board.Read32(addr)
		}
		return 3
	}

	v := c.r[rd]
	if rd == regPC {
		v += 8
	}
	if instr&0x00400000 != 0 {
		c.board.Write8(addr, byte(v))
	} else {
		c.board.Write32(addr, v)
	}
	return 2
}

// Data-processing opcode indices
const (
	opAND = 0x0
	opEOR = 0x1
	opSUB = 0x2
	opRSB = 0x3
	opADD = 0x4
	opCMP = 0xA
	opCMN = 0xB
	opORR = 0xC
	opMOV = 0xD
	opBIC = 0xE
	opMVN = 0xF
)

// dataProcessing executes the ALU group. The second operand is either a
// rotated 8-bit immediate or an unshifted register; shifted-register forms
// use the register value directly.
func (c *CPU) dataProcessing(instr uint32) int {
	op := instr >> 21 & 0xF
	setFlags := instr&0x00100000 != 0
	rn := instr >> 16 & 0xF
	rd := instr >> 12 & 0xF

	var op2 uint32
	if instr&0x02000000 != 0 { // rotated immediate
		rot := (instr >> 8 & 0xF) * 2
		imm := instr & 0xFF
		if rot == 0 {
			op2 = imm
		} else {
			op2 = imm>>rot | imm<<(32-rot)
		}
	} else {
		op2 = c.r[instr&0xF]
		if instr&0xF == regPC {
			op2 += 4
		}
	}

	a := c.r[rn]
	if rn == regPC {
		a += 4
	}

	var result uint32
	write := true
	switch op {
	case opAND:
		result = a & op2
	case opEOR:
		result = a ^ op2
	case opSUB:
		result = a - op2
	case opRSB:
		result = op2 - a
	case opADD:
		result = a + op2
	case opCMP:
		result = a - op2
		write = false
		setFlags = true
	case opCMN:
		result = a + op2
		write = false
		setFlags = true
	case opORR:
		result = a | op2
	case opMOV:
		result = op2
	case opBIC:
		result = a &^ op2
	case opMVN:
		result = ^op2
	default:
		// TST/TEQ/ADC/SBC/RSC are outside the subset
		return 1
	}

	if setFlags {
		c.setNZ(result)
		switch op {
		case opSUB, opCMP:
			c.setFlag(flagC, a >= op2)
		case opRSB:
			c.setFlag(flagC, op2 >= a)
		case opADD, opCMN:
			c.setFlag(flagC, result < a)
		}
	}

	if write {
		c.r[rd] = result
	}
	return 1
}

func (c *CPU) setNZ(v uint32) {
	c.setFlag(flagN, v&0x80000000 != 0)
	c.setFlag(flagZ, v == 0)
}

func (c *CPU) setFlag(flag uint32, on bool) {
	if on {
		c.cpsr |= flag
	} else {
		c.cpsr &^= flag
	}
}

// Serialize implements emucore.Serializer.
func (c *CPU) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(stateVersion)
	binary.Write(&buf, binary.LittleEndian, c.r)
	binary.Write(&buf, binary.LittleEndian, c.cpsr)
	return buf.Bytes(), nil
}

// Deserialize implements emucore.Serializer.
func (c *CPU) Deserialize(data []byte) error {
	if len(data) < 1+16*4+4 {
		return fmt.Errorf("gba: short cpu state: %d bytes", len(data))
	}
	if data[0] != stateVersion {
		return fmt.Errorf("gba: unknown cpu state version %d", data[0])
	}
	buf := bytes.NewReader(data[1:])
	if err := binary.Read(buf, binary.LittleEndian, &c.r); err != nil {
		return fmt.Errorf("gba: bad cpu state: %w", err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &c.cpsr); err != nil {
		return fmt.Errorf("gba: bad cpu state: %w", err)
	}
	return nil
}

var _ emucore.CPU = (*CPU)(nil)
var _ emucore.Serializer = (*CPU)(nil)
