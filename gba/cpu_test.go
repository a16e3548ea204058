package gba

import "testing"

// newTestCPU wires a CPU to an empty board and places the program in
// IWRAM with PC pointing at it.
func newTestCPU(t *testing.T, program ...uint32) (*CPU, *Board) {
	t.Helper()
	b := NewBoard()
	c := NewCPU(b)
	c.Reset()
	for i, instr := range program {
		b.Write32(0x03000000+uint32(i)*4, instr)
	}
	c.r[regPC] = 0x03000000
	return c, b
}

func TestCPUReset(t *testing.T) {
	c, _ := newTestCPU(t)
	c.Reset()

	if c.r[regSP] != 0x03007F00 {
		t.Errorf("SP after reset: got %#08x", c.r[regSP])
	}
	if c.r[regPC] != 0x08000000 {
		t.Errorf("PC after reset: got %#08x", c.r[regPC])
	}
	if c.cpsr != 0x1F {
		t.Errorf("CPSR after reset: got %#08x", c.cpsr)
	}
}

func TestStepMovImmediate(t *testing.T) {
	c, _ := newTestCPU(t, 0xE3A0002A) // MOV r0,#0x2A

	if cycles := c.Step(); cycles != 1 {
		t.Errorf("cycles: expected 1, got %d", cycles)
	}
	if c.r[0] != 0x2A {
		t.Errorf("r0: expected 0x2A, got %#x", c.r[0])
	}
}

func TestStepRotatedImmediate(t *testing.T) {
	c, _ := newTestCPU(t, 0xE3A004FF) // MOV r0,#0xFF000000
	c.Step()
	if c.r[0] != 0xFF000000 {
		t.Errorf("r0: expected 0xFF000000, got %#08x", c.r[0])
	}
}

func TestStepDataProcessing(t *testing.T) {
	// MOV r0,#0x0F; MOV r1,#0xF0; ORR r2,r0,r1; AND r3,r2,r0; EOR r4,r2,r2
	c, _ := newTestCPU(t,
		0xE3A0000F,
		0xE3A010F0,
		0xE1802001,
		0xE2023003, // AND r3,r2,#3
		0xE0224002, // EOR r4,r2,r2
	)
	for i := 0; i < 5; i++ {
		c.Step()
	}

	if c.r[2] != 0xFF {
		t.Errorf("ORR result: expected 0xFF, got %#x", c.r[2])
	}
	if c.r[3] != 0x03 {
		t.Errorf("AND result: expected 0x03, got %#x", c.r[3])
	}
	if c.r[4] != 0 {
		t.Errorf("EOR result: expected 0, got %#x", c.r[4])
	}
}

func TestStepSubtractFlags(t *testing.T) {
	// MOV r0,#5; SUBS r1,r0,#5
	c, _ := newTestCPU(t, 0xE3A00005, 0xE2501005)
	c.Step()
	c.Step()

	if c.r[1] != 0 {
		t.Errorf("SUBS result: expected 0, got %#x", c.r[1])
	}
	if c.cpsr&flagZ == 0 {
		t.Error("SUBS of equal values did not set Z")
	}
	if c.cpsr&flagC == 0 {
		t.Error("SUBS without borrow did not set C")
	}

	// MOV r0,#1; SUBS r1,r0,#2 borrows and goes negative
	c, _ = newTestCPU(t, 0xE3A00001, 0xE2501002)
	c.Step()
	c.Step()
	if c.cpsr&flagC != 0 {
		t.Error("SUBS with borrow left C set")
	}
	if c.cpsr&flagN == 0 {
		t.Error("negative SUBS result did not set N")
	}
}

func TestStepCompareAndCondition(t *testing.T) {
	// MOV r0,#0x2A; CMP r0,#0x2A; MOVEQ r3,#1; MOVNE r3,#2
	c, _ := newTestCPU(t,
		0xE3A0002A,
		0xE350002A,
		0x03A03001,
		0x13A03002,
	)
	c.Step()
	c.Step()
	if c.cpsr&flagZ == 0 {
		t.Fatal("CMP of equal values did not set Z")
	}

	c.Step()
	if c.r[3] != 1 {
		t.Errorf("MOVEQ not executed with Z set: r3=%#x", c.r[3])
	}
	if cycles := c.Step(); cycles != 1 {
		t.Errorf("skipped instruction cycles: expected 1, got %d", cycles)
	}
	if c.r[3] != 1 {
		t.Errorf("MOVNE executed with Z set: r3=%#x", c.r[3])
	}
}

func TestStepBranch(t *testing.T) {
	c, _ := newTestCPU(t, 0xEA000000) // B +0 (target is PC+8)
	c.Step()
	if c.r[regPC] != 0x03000008 {
		t.Errorf("PC after B: expected 0x03000008, got %#08x", c.r[regPC])
	}
}

func TestStepBranchLink(t *testing.T) {
	c, _ := newTestCPU(t, 0xEB000002) // BL +2 words
	if cycles := c.Step(); cycles != 3 {
		t.Errorf("BL cycles: expected 3, got %d", cycles)
	}
	if c.r[regLR] != 0x03000004 {
		t.Errorf("LR after BL: expected 0x03000004, got %#08x", c.r[regLR])
	}
	if c.r[regPC] != 0x03000010 {
		t.Errorf("PC after BL: expected 0x03000010, got %#08x", c.r[regPC])
	}
}

func TestStepBranchBackward(t *testing.T) {
	c, _ := newTestCPU(t, 0xEAFFFFFE) // B -2 words (branch to self)
	c.Step()
	if c.r[regPC] != 0x03000000 {
		t.Errorf("PC after backward B: expected 0x03000000, got %#08x", c.r[regPC])
	}
}

func TestStepLoadStore(t *testing.T) {
	// MOV r1,#0x02000000; MOV r0,#0x99; STR r0,[r1,#4]; LDR r2,[r1,#4]; LDRB r3,[r1,#4]
	c, b := newTestCPU(t,
		0xE3A01402, // MOV r1,#0x02000000
		0xE3A00099,
		0xE5810004,
		0xE5912004,
		0xE5D13004,
	)
	c.Step()
	if c.r[1] != 0x02000000 {
		t.Fatalf("base register: expected 0x02000000, got %#08x", c.r[1])
	}
	c.Step()
	if cycles := c.Step(); cycles != 2 {
		t.Errorf("STR cycles: expected 2, got %d", cycles)
	}
	if b.Read32(0x02000004) != 0x99 {
		t.Errorf("stored word: expected 0x99, got %#x", b.Read32(0x02000004))
	}

	if cycles := c.Step(); cycles != 3 {
		t.Errorf("LDR cycles: expected 3, got %d", cycles)
	}
	if c.r[2] != 0x99 {
		t.Errorf("loaded word: expected 0x99, got %#x", c.r[2])
	}

	c.Step()
	if c.r[3] != 0x99 {
		t.Errorf("loaded byte: expected 0x99, got %#x", c.r[3])
	}
}

func TestStepOutsideSubset(t *testing.T) {
	c, _ := newTestCPU(t, 0xEE000000) // coprocessor group
	if cycles := c.Step(); cycles != 1 {
		t.Errorf("cycles: expected 1, got %d", cycles)
	}
	if c.r[regPC] != 0x03000004 {
		t.Errorf("PC: expected 0x03000004, got %#08x", c.r[regPC])
	}
}

func TestCPUSerializeRoundTrip(t *testing.T) {
	c, b := newTestCPU(t, 0xE3A0002A, 0xE350002A) // MOV r0,#0x2A; CMP r0,#0x2A
	c.Step()
	c.Step()

	state, err := c.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	restored := NewCPU(b)
	if err := restored.Deserialize(state); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}

	if restored.r != c.r {
		t.Error("register file not restored")
	}
	if restored.cpsr != c.cpsr {
		t.Error("CPSR not restored")
	}

	if err := restored.Deserialize(state[:10]); err == nil {
		t.Error("short state accepted")
	}
	bad := append([]byte{}, state...)
	bad[0] = 0xFF
	if err := restored.Deserialize(bad); err == nil {
		t.Error("unknown state version accepted")
	}
}
