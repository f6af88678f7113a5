// Package cfbtest builds small compound files in memory for tests.
// The writer targets version 3 containers (512-byte sectors) and keeps
// the layout simple: directory first, then MiniFAT, mini-stream, large
// streams, and finally the FAT itself.
package cfbtest

import (
	"encoding/binary"
	"unicode/utf16"
)

// Stream is one named stream and its content.
type Stream struct {
	Name string
	Data []byte
}

// Storage is a named sub-storage holding streams.
type Storage struct {
	Name    string
	Streams []Stream
}

// Builder accumulates the container layout. Streams and Storages sit
// directly under the root; one level of nesting is enough for tests.
type Builder struct {
	Streams  []Stream
	Storages []Storage
}

const (
	sectorSize     = 512
	miniSectorSize = 64
	miniCutoff     = 4096
	dirEntrySize   = 128

	freeSect   = 0xFFFFFFFF
	endOfChain = 0xFFFFFFFE
	fatSect    = 0xFFFFFFFD
	nilIndex   = 0xFFFFFFFF
)

type dirEntry struct {
	name    string
	typ     byte
	left    uint32
	right   uint32
	child   uint32
	start   uint32
	size    uint64
	payload []byte // stream content, resolved to sectors later
	mini    bool
}

// Bytes serializes the container.
func (b *Builder) Bytes() []byte {
	entries, order := b.directory()

	// Partition stream payloads: small ones share the mini-stream.
	var miniStream []byte
	var miniFAT []uint32
	for _, idx := range order {
		e := &entries[idx]
		if e.typ != 2 || len(e.payload) == 0 {
			continue
		}
		if len(e.payload) < miniCutoff {
			e.mini = true
			e.start = uint32(len(miniStream) / miniSectorSize)
			miniStream = append(miniStream, e.payload...)
			miniStream = padTo(miniStream, miniSectorSize)
			n := (len(e.payload) + miniSectorSize - 1) / miniSectorSize
			for i := 0; i < n-1; i++ {
				miniFAT = append(miniFAT, e.start+uint32(i)+1)
			}
			miniFAT = append(miniFAT, endOfChain)
		}
	}

	dirData := padTo(serializeDirectoryPlaceholder(entries), sectorSize)
	dirSectors := len(dirData) / sectorSize

	miniFATData := serializeU32s(miniFAT)
	miniFATData = padU32(miniFATData, sectorSize, freeSect)
	miniFATSectors := len(miniFATData) / sectorSize

	miniStream = padTo(miniStream, sectorSize)
	miniStreamSectors := len(miniStream) / sectorSize

	// Large stream payloads, each padded to whole sectors.
	type largeStream struct {
		entry   int
		sectors int
	}
	var largeData []byte
	var larges []largeStream
	for i := range entries {
		e := &entries[i]
		if e.typ != 2 || e.mini || len(e.payload) == 0 {
			continue
		}
		padded := padTo(append([]byte(nil), e.payload...), sectorSize)
		larges = append(larges, largeStream{entry: i, sectors: len(padded) / sectorSize})
		largeData = append(largeData, padded...)
	}

	bodySectors := dirSectors + miniFATSectors + miniStreamSectors + len(largeData)/sectorSize
	entriesPerFATSector := sectorSize / 4
	fatSectors := 0
	for {
		total := bodySectors + fatSectors
		need := (total + entriesPerFATSector - 1) / entriesPerFATSector
		if need <= fatSectors {
			break
		}
		fatSectors = need
	}
	totalSectors := bodySectors + fatSectors

	// Assign sector positions.
	firstDir := uint32(0)
	firstMiniFAT := uint32(dirSectors)
	firstMiniStream := firstMiniFAT + uint32(miniFATSectors)
	firstLarge := firstMiniStream + uint32(miniStreamSectors)
	firstFAT := firstLarge + uint32(len(largeData)/sectorSize)

	next := firstLarge
	for _, ls := range larges {
		entries[ls.entry].start = next
		next += uint32(ls.sectors)
	}

	// Root entry holds the mini-stream.
	var miniBytes int
	for _, e := range entries {
		if e.mini {
			miniBytes += (len(e.payload) + miniSectorSize - 1) / miniSectorSize * miniSectorSize
		}
	}
	entries[0].size = uint64(miniBytes)
	if miniStreamSectors > 0 {
		entries[0].start = firstMiniStream
	} else {
		entries[0].start = endOfChain
	}

	// FAT: chain every consecutive run, mark FAT sectors.
	fat := make([]uint32, fatSectors*entriesPerFATSector)
	for i := range fat {
		fat[i] = freeSect
	}
	chain := func(start uint32, n int) {
		for i := 0; i < n-1; i++ {
			fat[start+uint32(i)] = start + uint32(i) + 1
		}
		if n > 0 {
			fat[start+uint32(n)-1] = endOfChain
		}
	}
	chain(firstDir, dirSectors)
	chain(firstMiniFAT, miniFATSectors)
	chain(firstMiniStream, miniStreamSectors)
	for _, ls := range larges {
		chain(entries[ls.entry].start, ls.sectors)
	}
	for i := 0; i < fatSectors; i++ {
		fat[int(firstFAT)+i] = fatSect
	}

	// Header.
	header := make([]byte, sectorSize)
	copy(header, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	le16 := func(off int, v uint16) { binary.LittleEndian.PutUint16(header[off:], v) }
	le32 := func(off int, v uint32) { binary.LittleEndian.PutUint32(header[off:], v) }
	le16(24, 0x3E)   // minor version
	le16(26, 3)      // major version
	le16(28, 0xFFFE) // byte order
	le16(30, 9)      // sector shift
	le16(32, 6)      // mini sector shift
	le32(44, uint32(fatSectors))
	le32(48, firstDir)
	le32(56, miniCutoff)
	if miniFATSectors > 0 {
		le32(60, firstMiniFAT)
	} else {
		le32(60, endOfChain)
	}
	le32(64, uint32(miniFATSectors))
	le32(68, endOfChain) // no DIFAT chain
	le32(72, 0)
	for i := 0; i < 109; i++ {
		if i < fatSectors {
			le32(76+i*4, firstFAT+uint32(i))
		} else {
			le32(76+i*4, freeSect)
		}
	}

	out := make([]byte, 0, sectorSize*(1+totalSectors))
	out = append(out, header...)
	out = append(out, serializeDirectory(entries)...)
	out = padTo(out[:len(out)], sectorSize)
	out = append(out, miniFATData...)
	out = append(out, miniStream...)
	out = append(out, largeData...)
	out = append(out, serializeU32s(fat)...)
	return out
}

// directory lays out entries: root first, then root's streams and
// storages, then each storage's streams. Siblings chain through Right
// pointers, which the reader's in-order walk visits in sequence.
func (b *Builder) directory() ([]dirEntry, []int) {
	entries := []dirEntry{{
		name:  "Root Entry",
		typ:   5,
		left:  nilIndex,
		right: nilIndex,
		child: nilIndex,
		start: endOfChain,
	}}
	var order []int

	addChain := func(parent int, members []dirEntry) {
		prev := -1
		for _, m := range members {
			m.left = nilIndex
			m.right = nilIndex
			if m.child == 0 {
				m.child = nilIndex
			}
			entries = append(entries, m)
			idx := len(entries) - 1
			order = append(order, idx)
			if prev < 0 {
				entries[parent].child = uint32(idx)
			} else {
				entries[prev].right = uint32(idx)
			}
			prev = idx
		}
	}

	var rootMembers []dirEntry
	for _, s := range b.Streams {
		rootMembers = append(rootMembers, dirEntry{
			name: s.Name, typ: 2, payload: s.Data, size: uint64(len(s.Data)),
		})
	}
	for range b.Storages {
		rootMembers = append(rootMembers, dirEntry{typ: 1})
	}
	// Place root members first so storage children land after them.
	base := len(entries)
	addChain(0, rootMembers)

	for i, st := range b.Storages {
		idx := base + len(b.Streams) + i
		entries[idx].name = st.Name
		var members []dirEntry
		for _, s := range st.Streams {
			members = append(members, dirEntry{
				name: s.Name, typ: 2, payload: s.Data, size: uint64(len(s.Data)),
			})
		}
		addChain(idx, members)
	}
	return entries, order
}

func serializeDirectoryPlaceholder(entries []dirEntry) []byte {
	return make([]byte, len(entries)*dirEntrySize)
}

func serializeDirectory(entries []dirEntry) []byte {
	out := make([]byte, len(entries)*dirEntrySize)
	for i, e := range entries {
		b := out[i*dirEntrySize : (i+1)*dirEntrySize]
		u := utf16.Encode([]rune(e.name))
		if len(u) > 31 {
			u = u[:31]
		}
		for j, cu := range u {
			binary.LittleEndian.PutUint16(b[j*2:], cu)
		}
		binary.LittleEndian.PutUint16(b[64:], uint16((len(u)+1)*2))
		b[66] = e.typ
		b[67] = 1 // black
		binary.LittleEndian.PutUint32(b[68:], e.left)
		binary.LittleEndian.PutUint32(b[72:], e.right)
		binary.LittleEndian.PutUint32(b[76:], e.child)
		binary.LittleEndian.PutUint32(b[116:], e.start)
		binary.LittleEndian.PutUint64(b[120:], e.size)
	}
	return out
}

func serializeU32s(vals []uint32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func padTo(b []byte, align int) []byte {
	for len(b)%align != 0 {
		b = append(b, 0)
	}
	return b
}

func padU32(b []byte, align int, fill uint32) []byte {
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], fill)
	for len(b)%align != 0 {
		b = append(b, word[:]...)
	}
	return b
}
