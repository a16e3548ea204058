package gb

import (
	"bytes"
	"encoding/binary"
	"fmt"

	emucore "github.com/halverson/corekit/api"
)

// Flag bits in the F register
const (
	flagZ byte = 0x80
	flagN byte = 0x40
	flagH byte = 0x20
	flagC byte = 0x10
)

// CPU is an SM83 model covering loads, the 8-bit ALU, the CB-prefixed
// shift/bit group, stack operations and control flow. Opcodes outside the
// subset execute as 4-cycle no-ops so that stepping over arbitrary images
// stays deterministic. Interrupt dispatch is not modelled.
type CPU struct {
	board *Board

	a, f byte
	b, c byte
	d, e byte
	h, l byte
	sp   uint16
	pc   uint16

	ime    bool
	halted bool
}

// NewCPU constructs a CPU wired to the given board. The board must be a
// *gb.Board.
func NewCPU(board emucore.Board) *CPU {
	return &CPU{board: board.(*Board)}
}

// Reset puts the register file into the DMG post-boot state.
func (c *CPU) Reset() {
	c.a, c.f = 0x01, 0xB0
	c.b, c.c = 0x00, 0x13
	c.d, c.e = 0x00, 0xD8
	c.h, c.l = 0x01, 0x4D
	c.sp = 0xFFFE
	c.pc = 0x0100
	c.ime = false
	c.halted = false
}

// Step executes the next instruction and returns the cycles consumed.
func (c *CPU) Step() int {
	if c.halted {
		return 4
	}

	op := c.fetch8()

	// LD r,r' block (0x76 is HALT)
	if op >= 0x40 && op <= 0x7F && op != 0x76 {
		dst := int(op>>3) & 7
		src := int(op) & 7
		c.setReg(dst, c.reg(src))
		if dst == regIdxHL || src == regIdxHL {
			return 8
		}
		return 4
	}

	// ALU A,r block
	if op >= 0x80 && op <= 0xBF {
		c.alu(int(op>>3)&7, c.reg(int(op)&7))
		if op&7 == regIdxHL {
			return 8
		}
		return 4
	}

	switch op & 0xCF {
	case 0x01: // LD rr,d16
		c.setRR16(int(op>>4)&3, c.fetch16())
		return 12
	case 0x03: // INC rr
		i := int(op>>4) & 3
		c.setRR16(i, c.rr16(i)+1)
		return 8
	case 0x0B: // DEC rr
		i := int(op>>4) & 3
		c.setRR16(i, c.rr16(i)-1)
		return 8
	case 0xC5: // PUSH rr
		c.push16(c.rrStack(int(op>>4) & 3))
		return 16
	case 0xC1: // POP rr
		c.setRRStack(int(op>>4)&3, c.pop16())
		return 12
	}

	switch op & 0xC7 {
	case 0x04: // INC r
		i := int(op>>3) & 7
		v := c.reg(i) + 1
		c.setReg(i, v)
		c.setFlag(flagZ, v == 0)
		c.setFlag(flagN, false)
		c.setFlag(flagH, v&0x0F == 0)
		if i == regIdxHL {
			return 12
		}
		return 4
	case 0x05: // DEC r
		i := int(op>>3) & 7
		v := c.reg(i) - 1
		c.setReg(i, v)
		c.setFlag(flagZ, v == 0)
		c.setFlag(flagN, true)
		c.setFlag(flagH, v&0x0F == 0x0F)
		if i == regIdxHL {
			return 12
		}
		return 4
	case 0x06: // LD r,d8
		i := int(op>>3) & 7
		c.setReg(i, c.fetch8())
		if i == regIdxHL {
			return 12
		}
		return 8
	case 0xC6: // ALU A,d8
		c.alu(int(op>>3)&7, c.fetch8())
		return 8
	}

	switch op {
	case 0x00: // NOP
		return 4
	case 0x02: // LD (BC),A
		c.board.Write(c.bc(), c.a)
		return 8
	case 0x12: // LD (DE),A
		c.board.Write(c.de(), c.a)
		return 8
	case 0x0A: // LD A,(BC)
		c.a = c.board.Read(c.bc())
		return 8
	case 0x1A: // LD A,(DE)
		c.a = c.board.Read(c.de())
		return 8
	case 0x22: // LD (HL+),A
		c.board.Write(c.hl(), c.a)
		c.setHL(c.hl() + 1)
		return 8
	case 0x32: // LD (HL-),A
		c.board.Write(c.hl(), c.a)
		c.setHL(c.hl() - 1)
		return 8
	case 0x2A: // LD A,(HL+)
		c.a = c.board.Read(c.hl())
		c.setHL(c.hl() + 1)
		return 8
	case 0x3A: // LD A,(HL-)
		c.a = c.board.Read(c.hl())
		c.setHL(c.hl() - 1)
		return 8

	case 0x07: // RLCA
		carry := c.a >> 7
		c.a = c.a<<1 | carry
		c.f = 0
		c.setFlag(flagC, carry != 0)
		return 4
	case 0x0F: // RRCA
		carry := c.a & 1
		c.a = c.a>>1 | carry<<7
		c.f = 0
		c.setFlag(flagC, carry != 0)
		return 4
	case 0x17: // RLA
		carry := c.a >> 7
		c.a = c.a << 1
		if c.f&flagC != 0 {
			c.a |= 1
		}
		c.f = 0
		c.setFlag(flagC, carry != 0)
		return 4
	case 0x1F: // RRA
		carry := c.a & 1
		c.a = c.a >> 1
		if c.f&flagC != 0 {
			c.a |= 0x80
		}
		c.f = 0
		c.setFlag(flagC, carry != 0)
		return 4

	case 0x2F: // CPL
		c.a = ^c.a
		c.setFlag(flagN, true)
		c.setFlag(flagH, true)
		return 4
	case 0x37: // SCF
		c.setFlag(flagN, false)
		c.setFlag(flagH, false)
		c.setFlag(flagC, true)
		return 4
	case 0x3F: // CCF
		c.setFlag(flagN, false)
		c.setFlag(flagH, false)
		c.setFlag(flagC, c.f&flagC == 0)
		return 4

	case 0x18: // JR r8
		off := int8(c.fetch8())
		c.pc = uint16(int32(c.pc) + int32(off))
		return 12
	case 0x20, 0x28, 0x30, 0x38: // JR cc,r8
		off := int8(c.fetch8())
		if c.condition(int(op>>3) & 3) {
			c.pc = uint16(int32(c.pc) + int32(off))
			return 12
		}
		return 8

	case 0xC3: // JP a16
		c.pc = c.fetch16()
		return 16
	case 0xC2, 0xCA, 0xD2, 0xDA: // JP cc,a16
		addr := c.fetch16()
		if c.condition(int(op>>3) & 3) {
			c.pc = addr
			return 16
		}
		return 12
	case 0xE9: // JP (HL)
		c.pc = c.hl()
		return 4

	case 0xCD: // CALL a16
		addr := c.fetch16()
		c.push16(c.pc)
		c.pc = addr
		return 24
	case 0xC4, 0xCC, 0xD4, 0xDC: // CALL cc,a16
		addr := c.fetch16()
		if c.condition(int(op>>3) & 3) {
			c.push16(c.pc)
			c.pc = addr
			return 24
		}
		return 12

	case 0xC9: // RET
		c.pc = c.pop16()
		return 16
	case 0xD9: // RETI
		c.pc = c.pop16()
		c.ime = true
		return 16
	case 0xC0, 0xC8, 0xD0, 0xD8: // RET cc
		if c.condition(int(op>>3) & 3) {
			c.pc = c.pop16()
			return 20
		}
		return 8

	case 0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF: // RST
		c.push16(c.pc)
		c.pc = uint16(op & 0x38)
		return 16

	case 0xE0: // LDH (a8),A
		c.board.Write(0xFF00+uint16(c.fetch8()), c.a)
		return 12
	case 0xF0: // LDH A,(a8)
		c.a = c.board.Read(0xFF00 + uint16(c.fetch8()))
		return 12
	case 0xE2: // LD (C),A
		c.board.Write(0xFF00+uint16(c.c), c.a)
		return 8
	case 0xF2: // LD A,(C)
		c.a = c.board.Read(0xFF00 + uint16(c.c))
		return 8
	case 0xEA: // LD (a16),A
		c.board.Write(c.fetch16(), c.a)
		return 16
	case 0xFA: // LD A,(a16)
		c.a = c.board.Read(c.fetch16())
		return 16
	case 0xF9: // LD SP,HL
		c.sp = c.hl()
		return 8

	case 0x76: // HALT
		c.halted = true
		return 4
	case 0xF3: // DI
		c.ime = false
		return 4
	case 0xFB: // EI
		c.ime = true
		return 4

	case 0xCB:
		return c.stepCB()
	}

	// Outside the modelled subset
	return 4
}

// stepCB executes the CB-prefixed shift, rotate and bit group.
func (c *CPU) stepCB() int {
	op := c.fetch8()
	i := int(op) & 7
	bit := byte(1) << ((op >> 3) & 7)
	v := c.reg(i)

	switch op >> 6 {
	case 1: // BIT b,r
		c.setFlag(flagZ, v&bit == 0)
		c.setFlag(flagN, false)
		c.setFlag(flagH, true)
		if i == regIdxHL {
			return 12
		}
		return 8
	case 2: // RES b,r
		c.setReg(i, v&^bit)
	case 3: // SET b,r
		c.setReg(i, v|bit)
	default: // shift/rotate group
		var carry byte
		switch (op >> 3) & 7 {
		case 0: // RLC
			carry = v >> 7
			v = v<<1 | carry
		case 1: // RRC
			carry = v & 1
			v = v>>1 | carry<<7
		case 2: // RL
			carry = v >> 7
			v <<= 1
			if c.f&flagC != 0 {
				v |= 1
			}
		case 3: // RR
			carry = v & 1
			v >>= 1
			if c.f&flagC != 0 {
				v |= 0x80
			}
		case 4: // SLA
			carry = v >> 7
			v <<= 1
		case 5: // SRA
			carry = v & 1
			v = v>>1 | v&0x80
		case 6: // SWAP
			carry = 0
			v = v<<4 | v>>4
		case 7: // SRL
			carry = v & 1
			v >>= 1
		}
		c.setReg(i, v)
		c.f = 0
		c.setFlag(flagZ, v == 0)
		c.setFlag(flagC, carry != 0)
	}

	if i == regIdxHL {
		return 16
	}
	return 8
}

// alu applies an 8-bit ALU operation to A. op index: ADD, ADC, SUB, SBC,
// AND, XOR, OR, CP.
func (c *CPU) alu(op int, v byte) {
	switch op {
	case 0, 1: // ADD, ADC
		carry := uint16(0)
		if op == 1 && c.f&flagC != 0 {
			carry = 1
		}
		sum := uint16(c.a) + uint16(v) + carry
		half := c.a&0x0F + v&0x0F + byte(carry)
		c.a = byte(sum)
		c.f = 0
		c.setFlag(flagZ, c.a == 0)
		c.setFlag(flagH, half > 0x0F)
		c.setFlag(flagC, sum > 0xFF)
	case 2, 3, 7: // SUB, SBC, CP
		carry := uint16(0)
		if op == 3 && c.f&flagC != 0 {
			carry = 1
		}
		diff := uint16(c.a) - uint16(v) - carry
		half := uint16(c.a&0x0F) - uint16(v&0x0F) - carry
		res := byte(diff)
		c.f = flagN
		c.setFlag(flagZ, res == 0)
		c.setFlag(flagH, half > 0x0F)
		c.setFlag(flagC, diff > 0xFF)
		if op != 7 {
			c.a = res
		}
	case 4: // AND
		c.a &= v
		c.f = flagH
		c.setFlag(flagZ, c.a == 0)
	case 5: // XOR
		c.a ^= v
		c.f = 0
		c.setFlag(flagZ, c.a == 0)
	case 6: // OR
		c.a |= v
		c.f = 0
		c.setFlag(flagZ, c.a == 0)
	}
}

// Register index used for the (HL) pseudo-register in opcode encodings
const regIdxHL = 6

func (c *CPU) reg(i int) byte {
	switch i {
	case 0:
		return c.b
	case 1:
		return c.c
	case 2:
		return c.d
	case 3:
		return c.e
	case 4:
		return c.h
	case 5:
		return c.l
	case regIdxHL:
		return c.board.Read(c.hl())
	default:
		return c.a
	}
}

func (c *CPU) setReg(i int, v byte) {
	switch i {
	case 0:
		c.b = v
	case 1:
		c.c = v
	case 2:
		c.d = v
	case 3:
		c.e = v
	case 4:
		c.h = v
	case 5:
		c.l = v
	case regIdxHL:
		c.board.Write(c.hl(), v)
	default:
		c.a = v
	}
}

// rr16 returns the 16-bit register pair for the BC/DE/HL/SP encoding
func (c *CPU) rr16(i int) uint16 {
	switch i {
	case 0:
		return c.bc()
	case 1:
		return c.de()
	case 2:
		return c.hl()
	default:
		return c.sp
	}
}

func (c *CPU) setRR16(i int, v uint16) {
	switch i {
	case 0:
		c.b, c.c = byte(v>>8), byte(v)
	case 1:
		c.d, c.e = byte(v>>8), byte(v)
	case 2:
		c.setHL(v)
	default:
		c.sp = v
	}
}

// rrStack returns the register pair for the PUSH/POP encoding (AF replaces
// SP)
func (c *CPU) rrStack(i int) uint16 {
	if i == 3 {
		return uint16(c.a)<<8 | uint16(c.f)
	}
	return c.rr16(i)
}

func (c *CPU) setRRStack(i int, v uint16) {
	if i == 3 {
		c.a = byte(v >> 8)
		c.f = byte(v) & 0xF0 // low nibble of F always reads zero
		return
	}
	c.setRR16(i, v)
}

// condition evaluates the NZ/Z/NC/C condition encoding
func (c *CPU) condition(i int) bool {
	switch i {
	case 0:
		return c.f&flagZ == 0
	case 1:
		return c.f&flagZ != 0
	case 2:
		return c.f&flagC == 0
	default:
		return c.f&flagC != 0
	}
}

func (c *CPU) setFlag(flag byte, on bool) {
	if on {
		c.f |= flag
	} else {
		c.f &^= flag
	}
}

func (c *CPU) bc() uint16 { return uint16(c.b)<<8 | uint16(c.c) }
func (c *CPU) de() uint16 { return uint16(c.d)<<8 | uint16(c.e) }
func (c *CPU) hl() uint16 { return uint16(c.h)<<8 | uint16(c.l) }

func (c *CPU) setHL(v uint16) {
	c.h, c.l = byte(v>>8), byte(v)
}

func (c *CPU) fetch8() byte {
	v := c.board.Read(c.pc)
	c.pc++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.fetch8())
	hi := uint16(c.fetch8())
	return hi<<8 | lo
}

func (c *CPU) push16(v uint16) {
	c.sp -= 2
	c.board.Write(c.sp, byte(v))
	c.board.Write(c.sp+1, byte(v>>8))
}

func (c *CPU) pop16() uint16 {
	lo := uint16(c.board.Read(c.sp))
	hi := uint16(c.board.Read(c.sp + 1))
	c.sp += 2
	return hi<<8 | lo
}

// Serialize implements emucore.Serializer.
func (c *CPU) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(stateVersion)
	buf.Write([]byte{c.a, c.f, c.b, c.c, c.d, c.e, c.h, c.l})
	binary.Write(&buf, binary.LittleEndian, c.sp)
	binary.Write(&buf, binary.LittleEndian, c.pc)
	flags := byte(0)
	if c.ime {
		flags |= 1
	}
	if c.halted {
		flags |= 2
	}
	buf.WriteByte(flags)
	return buf.Bytes(), nil
}

// Deserialize implements emucore.Serializer.
func (c *CPU) Deserialize(data []byte) error {
	if len(data) < 14 {
		return fmt.Errorf("gb: short cpu state: %d bytes", len(data))
	}
	if data[0] != stateVersion {
		return fmt.Errorf("gb: unknown cpu state version %d", data[0])
	}
	c.a, c.f = data[1], data[2]
	c.b, c.c = data[3], data[4]
	c.d, c.e = data[5], data[6]
	c.h, c.l = data[7], data[8]
	c.sp = binary.LittleEndian.Uint16(data[9:11])
	c.pc = binary.LittleEndian.Uint16(data[11:13])
	c.ime = data[13]&1 != 0
	c.halted = data[13]&2 != 0
	return nil
}

var _ emucore.CPU = (*CPU)(nil)
var _ emucore.Serializer = (*CPU)(nil)
