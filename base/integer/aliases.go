package integer

type (
	U4  = Int[uint8, W4]
	U8  = Int[uint8, W8]
	U16 = Int[uint16, W16]
	U32 = Int[uint32, W32]
	U48 = Int[uint64, W48]
	U64 = Int[uint64, W64]
	I8  = Int[int8, S8]
	I16 = Int[int16, S16]
	I32 = Int[int32, S32]
	I64 = Int[int64, S64]
)

func NewU4(v uint8) (U4, error)   { return New[uint8, W4](v) }
func NewU8(v uint8) (U8, error)   { return New[uint8, W8](v) }
func NewU16(v uint16) (U16, error) { return New[uint16, W16](v) }
func NewU32(v uint32) (U32, error) { return New[uint32, W32](v) }
func NewU48(v uint64) (U48, error) { return New[uint64, W48](v) }
func NewU64(v uint64) (U64, error) { return New[uint64, W64](v) }
func NewI8(v int8) (I8, error)     { return New[int8, S8](v) }
func NewI16(v int16) (I16, error)  { return New[int16, S16](v) }
func NewI32(v int32) (I32, error)  { return New[int32, S32](v) }
func NewI64(v int64) (I64, error)  { return New[int64, S64](v) }

func MustU4(v uint8) U4    { return Must[uint8, W4](v) }
func MustU8(v uint8) U8    { return Must[uint8, W8](v) }
func MustU16(v uint16) U16 { return Must[uint16, W16](v) }
func MustU32(v uint32) U32 { return Must[uint32, W32](v) }
func MustU48(v uint64) U48 { return Must[uint64, W48](v) }
func MustU64(v uint64) U64 { return Must[uint64, W64](v) }
func MustI8(v int8) I8     { return Must[int8, S8](v) }
func MustI16(v int16) I16  { return Must[int16, S16](v) }
func MustI32(v int32) I32  { return Must[int32, S32](v) }
func MustI64(v int64) I64  { return Must[int64, S64](v) }
