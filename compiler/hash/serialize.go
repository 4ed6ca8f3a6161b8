package hash

import (
	"encoding/binary"
	"sort"

	"github.com/chazu/gd2c/project"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of compiler inputs.
//
// Encoding conventions:
//   - First byte: HashVersion
//   - Integers: big-endian fixed-width (int64=8B, uint32=4B)
//   - Strings and byte strings: uint32 big-endian length + bytes
//   - Booleans: single byte (0/1)
//   - Lists: uint32 count, then each element preceded by its tag
//   - Hashes of child records: 32 raw bytes
// ---------------------------------------------------------------------------

type serializer struct {
	buf []byte
}

func newSerializer(tag byte) *serializer {
	s := &serializer{buf: make([]byte, 0, 256)}
	s.writeByte(HashVersion)
	s.writeByte(tag)
	return s
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeBool(v bool) {
	if v {
		s.writeByte(1)
	} else {
		s.writeByte(0)
	}
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt(v int) {
	s.writeInt64(int64(v))
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) writeBytes(v []byte) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) writeHash(h [32]byte) {
	s.buf = append(s.buf, h[:]...)
}

func (s *serializer) writeCount(n int) {
	s.writeUint32(uint32(n))
}

func (s *serializer) writeDataType(t project.DataType) {
	s.writeByte(TagDataType)
	s.writeInt(int(t.Type))
	s.writeString(t.TypeName)
	s.writeInt(t.Kind)
}

func (s *serializer) writeConstant(k project.Constant) {
	s.writeByte(TagConstant)
	s.writeString(k.Name)
	s.writeString(k.Declaration)
	s.writeBytes(k.Value.Data)
}

func (s *serializer) writeStrings(tag byte, list []string) {
	s.writeCount(len(list))
	for _, v := range list {
		s.writeByte(tag)
		s.writeString(v)
	}
}

func (s *serializer) writeSortedStrings(tag byte, list []string) {
	sorted := append([]string(nil), list...)
	sort.Strings(sorted)
	s.writeStrings(tag, sorted)
}

// SerializeFunction produces the byte form of a function's compiler
// inputs: signature, tables and code. Annotations are derived from these
// and are not included.
func SerializeFunction(f *project.Function) []byte {
	s := newSerializer(TagFunction)
	s.writeString(f.Name)
	s.writeDataType(f.ReturnType)

	s.writeCount(len(f.Parameters))
	for _, p := range f.Parameters {
		s.writeByte(TagParameter)
		s.writeString(p.Name)
		s.writeDataType(p.DataType)
	}

	s.writeInt(f.StackSize)

	s.writeCount(len(f.DefaultArguments))
	for _, off := range f.DefaultArguments {
		s.writeByte(TagDefaultArg)
		s.writeInt(off)
	}

	s.writeStrings(TagGlobalName, f.GlobalNames)

	s.writeCount(len(f.Constants))
	for _, k := range f.Constants {
		s.writeConstant(k)
	}

	s.writeByte(TagCode)
	s.writeCount(len(f.Code))
	for _, w := range f.Code {
		s.writeInt64(int64(w))
	}
	return s.buf
}

// SerializeClass produces the byte form of a class. Functions and
// dependencies enter through their hashes, in declaration order.
func SerializeClass(c *project.Class, env [32]byte, functions, deps [][32]byte) []byte {
	s := newSerializer(TagClass)
	s.writeHash(env)
	s.writeString(c.Name)
	s.writeString(c.Path)
	s.writeString(c.InstanceType)
	s.writeString(c.BasePath)

	s.writeCount(len(c.Members))
	for _, m := range c.Members {
		s.writeByte(TagMember)
		s.writeInt(m.Index)
		s.writeString(m.Name)
		s.writeInt(m.Kind)
		s.writeInt(int(m.Type))
		s.writeString(m.NativeType)
		s.writeBool(m.HasType)
	}

	s.writeCount(len(c.Constants))
	for _, k := range c.Constants {
		s.writeConstant(k)
	}

	s.writeStrings(TagSignal, c.Signals)

	s.writeCount(len(functions))
	for _, h := range functions {
		s.writeByte(TagFunctionHash)
		s.writeHash(h)
	}

	s.writeCount(len(deps))
	for _, h := range deps {
		s.writeByte(TagDependency)
		s.writeHash(h)
	}
	return s.buf
}

// SerializeEnvironment produces the byte form of the inputs shared by
// every class: build settings and the engine's global constant table.
// Pass order matters and is kept; the disallow list is a set.
func SerializeEnvironment(settings Settings, globals []project.GlobalConstant) []byte {
	s := newSerializer(TagEnvironment)
	s.writeByte(TagSetting)
	s.writeString(settings.Target)
	s.writeBool(settings.SSA)
	s.writeBool(settings.StripDebug)
	s.writeInt(settings.MaxIterations)
	s.writeStrings(TagPass, settings.Passes)
	s.writeSortedStrings(TagDisallow, settings.Disallow)

	s.writeCount(len(globals))
	for _, g := range globals {
		s.writeByte(TagGlobalConstant)
		s.writeInt(g.Index)
		s.writeString(g.Name)
	}
	return s.buf
}
