package fit

import (
	"fmt"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
)

// Container constants.
const (
	HeaderSize      = 14
	ProtocolVersion = 0x20 // 2.0
	ProfileVersion  = 2132 // 21.32

	definitionFlag = 0x40
	archLittle     = 0
)

// BaseType is the FIT base type byte written in field definitions.
type BaseType byte

const (
	BaseEnum    BaseType = 0x00
	BaseString  BaseType = 0x07
	BaseUint16  BaseType = 0x84
	BaseSint32  BaseType = 0x85
	BaseUint32  BaseType = 0x86
	BaseUint32z BaseType = 0x8C
)

// Invalid sentinels from the FIT profile.
const (
	InvalidUint16 uint16 = 0xFFFF
	InvalidUint32 uint32 = 0xFFFFFFFF
)

// Global message numbers used by the encoders.
const (
	MesgFileID      uint16 = 0
	MesgLap         uint16 = 19
	MesgRecord      uint16 = 20
	MesgEvent       uint16 = 21
	MesgWorkout     uint16 = 26
	MesgWorkoutStep uint16 = 27
	MesgCourse      uint16 = 31
	MesgCoursePoint uint16 = 32
)

// FieldDef declares one field of a message definition.
type FieldDef struct {
	Num  uint8
	Size uint8
	Base BaseType
}

// MessageDef binds a local message type (0-15) to a global message layout.
type MessageDef struct {
	Local  uint8
	Global uint16
	Fields []FieldDef
}

// file assembles a FIT container: header placeholder, message stream and
// trailing CRC.
type file struct {
	w *writer
}

func newFile() *file {
	w := newWriter(initialBufferSize)
	w.u8(HeaderSize)
	w.u8(ProtocolVersion)
	w.u16(ProfileVersion)
	w.u32(0) // data size, patched in finish
	w.raw([]byte(".FIT"))
	w.u16(0) // header crc, patched in finish
	return &file{w: w}
}

func (f *file) define(d MessageDef) {
	f.w.u8(definitionFlag | (d.Local & 0x0F))
	f.w.u8(0)
	f.w.u8(archLittle)
	f.w.u16(d.Global)
	f.w.u8(uint8(len(d.Fields)))
	for _, fd := range d.Fields {
		f.w.u8(fd.Num)
		f.w.u8(fd.Size)
		f.w.u8(byte(fd.Base))
	}
}

// write emits one data message. values must line up with d.Fields.
func (f *file) write(d MessageDef, values ...any) error {
	if len(values) != len(d.Fields) {
		return hubErrors.ErrInternal.WithMessagef("message %d: %d values for %d fields", d.Global, len(values), len(d.Fields))
	}
	f.w.u8(d.Local & 0x0F)
	for i, fd := range d.Fields {
		if err := f.writeField(fd, values[i]); err != nil {
			return fmt.Errorf("message %d field %d: %w", d.Global, fd.Num, err)
		}
	}
	return nil
}

func (f *file) writeField(fd FieldDef, v any) error {
	switch fd.Base {
	case BaseEnum:
		u, ok := v.(uint8)
		if !ok || fd.Size != 1 {
			return fieldTypeError(fd, v)
		}
		f.w.u8(u)
	case BaseUint16:
		u, ok := v.(uint16)
		if !ok || fd.Size != 2 {
			return fieldTypeError(fd, v)
		}
		f.w.u16(u)
	case BaseUint32, BaseUint32z:
		u, ok := v.(uint32)
		if !ok || fd.Size != 4 {
			return fieldTypeError(fd, v)
		}
		f.w.u32(u)
	case BaseSint32:
		s, ok := v.(int32)
		if !ok || fd.Size != 4 {
			return fieldTypeError(fd, v)
		}
		f.w.s32(s)
	case BaseString:
		s, ok := v.(string)
		if !ok {
			return fieldTypeError(fd, v)
		}
		f.w.str(s, int(fd.Size))
	default:
		return hubErrors.ErrInternal.WithMessagef("unsupported base type 0x%02x", byte(fd.Base))
	}
	return nil
}

func fieldTypeError(fd FieldDef, v any) error {
	return hubErrors.ErrInternal.WithMessagef("value %T does not fit base type 0x%02x size %d", v, byte(fd.Base), fd.Size)
}

// finish patches the data size and header CRC, appends the file CRC and
// returns the complete file.
func (f *file) finish() []byte {
	w := f.w
	w.putU32(4, uint32(w.Len()-HeaderSize))
	w.putU16(12, CRC16(w.Bytes()[:12]))
	w.u16(CRC16(w.Bytes()))
	return w.Bytes()
}
