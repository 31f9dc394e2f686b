package memory

// Tag attributes allocations to the subsystem that requested them
type Tag uint8

const (
	TagUnknown Tag = iota
	TagDynamicArray
	TagArena
	TagHashMap
	TagRingBuffer
	TagFrame

	tagCount
)

var tagMapping = map[Tag]string{
	TagUnknown:      "Unknown",
	TagDynamicArray: "DynamicArray",
	TagArena:        "Arena",
	TagHashMap:      "HashMap",
	TagRingBuffer:   "RingBuffer",
	TagFrame:        "Frame",
}

// known maps tags outside the defined set to TagUnknown
func (t Tag) known() Tag {
	if t >= tagCount {
		return TagUnknown
	}
	return t
}

func (t Tag) String() string {
	str, ok := tagMapping[t]
	if !ok {
		return "Invalid"
	}
	return str
}
