package model

// Kind is the structural kind of a type.
type Kind string

const (
	KindBoolean          Kind = "BOOLEAN"
	KindInteger          Kind = "INTEGER"
	KindBitString        Kind = "BIT STRING"
	KindOctetString      Kind = "OCTET STRING"
	KindNull             Kind = "NULL"
	KindObjectIdentifier Kind = "OBJECT IDENTIFIER"
	KindObjectDescriptor Kind = "ObjectDescriptor"
	KindExternal         Kind = "EXTERNAL"
	KindReal             Kind = "REAL"
	KindEnumerated       Kind = "ENUMERATED"
	KindEmbeddedPDV      Kind = "EMBEDDED PDV"
	KindUTF8String       Kind = "UTF8String"
	KindRelativeOID      Kind = "RELATIVE-OID"
	KindTime             Kind = "TIME"
	KindSequence         Kind = "SEQUENCE"
	KindSequenceOf       Kind = "SEQUENCE OF"
	KindSet              Kind = "SET"
	KindSetOf            Kind = "SET OF"
	KindNumericString    Kind = "NumericString"
	KindPrintableString  Kind = "PrintableString"
	KindTeletexString    Kind = "TeletexString"
	KindVideotexString   Kind = "VideotexString"
	KindIA5String        Kind = "IA5String"
	KindUTCTime          Kind = "UTCTime"
	KindGeneralizedTime  Kind = "GeneralizedTime"
	KindGraphicString    Kind = "GraphicString"
	KindVisibleString    Kind = "VisibleString"
	KindGeneralString    Kind = "GeneralString"
	KindUniversalString  Kind = "UniversalString"
	KindCharacterString  Kind = "CHARACTER STRING"
	KindBMPString        Kind = "BMPString"
	KindDate             Kind = "DATE"
	KindTimeOfDay        Kind = "TIME-OF-DAY"
	KindDateTime         Kind = "DATE-TIME"
	KindDuration         Kind = "DURATION"
	KindOIDIRI           Kind = "OID-IRI"
	KindRelativeOIDIRI   Kind = "RELATIVE-OID-IRI"
	KindChoice           Kind = "CHOICE"
	KindInstanceOf       Kind = "INSTANCE OF"
	KindOpenType         Kind = "open type"

	// KindReference marks a descriptor whose base has not been resolved yet.
	KindReference Kind = "reference"
)

// universalTags is the fixed universal class tag table.
var universalTags = map[Kind]int64{
	KindBoolean:          1,
	KindInteger:          2,
	KindBitString:        3,
	KindOctetString:      4,
	KindNull:             5,
	KindObjectIdentifier: 6,
	KindObjectDescriptor: 7,
	KindExternal:         8,
	KindInstanceOf:       8,
	KindReal:             9,
	KindEnumerated:       10,
	KindEmbeddedPDV:      11,
	KindUTF8String:       12,
	KindRelativeOID:      13,
	KindTime:             14,
	KindSequence:         16,
	KindSequenceOf:       16,
	KindSet:              17,
	KindSetOf:            17,
	KindNumericString:    18,
	KindPrintableString:  19,
	KindTeletexString:    20,
	KindVideotexString:   21,
	KindIA5String:        22,
	KindUTCTime:          23,
	KindGeneralizedTime:  24,
	KindGraphicString:    25,
	KindVisibleString:    26,
	KindGeneralString:    27,
	KindUniversalString:  28,
	KindCharacterString:  29,
	KindBMPString:        30,
	KindDate:             31,
	KindTimeOfDay:        32,
	KindDateTime:         33,
	KindDuration:         34,
	KindOIDIRI:           35,
	KindRelativeOIDIRI:   36,
}

// UniversalTag returns the fixed universal tag of k. CHOICE and open types
// have none and yield the untagged tag with ok false.
func UniversalTag(k Kind) (Tag, bool) {
	n, ok := universalTags[k]
	if !ok {
		return Untagged, false
	}
	return Tag{Class: ClassUniversal, Number: n}, true
}

// IsStructured reports whether k is SEQUENCE, SET or CHOICE.
func (k Kind) IsStructured() bool {
	return k == KindSequence || k == KindSet || k == KindChoice
}

// IsCollection reports whether k is SEQUENCE OF or SET OF.
func (k Kind) IsCollection() bool {
	return k == KindSequenceOf || k == KindSetOf
}

// IsCharacterString reports whether k is a character string type, for which
// permitted alphabet constraints apply.
func (k Kind) IsCharacterString() bool {
	switch k {
	case KindUTF8String, KindNumericString, KindPrintableString, KindTeletexString,
		KindVideotexString, KindIA5String, KindGraphicString, KindVisibleString,
		KindGeneralString, KindUniversalString, KindBMPString, KindCharacterString:
		return true
	}
	return false
}

// IsTime reports whether k is a time type, for which SETTINGS applies.
func (k Kind) IsTime() bool {
	switch k {
	case KindTime, KindDate, KindTimeOfDay, KindDateTime, KindDuration,
		KindUTCTime, KindGeneralizedTime:
		return true
	}
	return false
}

// HasSize reports whether SIZE constraints apply to k.
func (k Kind) HasSize() bool {
	return k == KindBitString || k == KindOctetString || k.IsCollection() || k.IsCharacterString()
}

// builtinKinds lists the kinds with a canonical arena entry, in the order of
// their BuiltinID handles.
var builtinKinds = []Kind{
	KindBoolean, KindInteger, KindBitString, KindOctetString, KindNull,
	KindObjectIdentifier, KindObjectDescriptor, KindExternal, KindReal,
	KindEmbeddedPDV, KindUTF8String, KindRelativeOID, KindTime,
	KindNumericString, KindPrintableString, KindTeletexString,
	KindVideotexString, KindIA5String, KindUTCTime, KindGeneralizedTime,
	KindGraphicString, KindVisibleString, KindGeneralString,
	KindUniversalString, KindCharacterString, KindBMPString, KindDate,
	KindTimeOfDay, KindDateTime, KindDuration, KindOIDIRI, KindRelativeOIDIRI,
	KindOpenType,
}

// NumBuiltins is the number of canonical built-in descriptors at the start
// of every Program arena.
var NumBuiltins = len(builtinKinds)

// BuiltinID returns the canonical handle of an unconstrained built-in kind,
// or NoType when k has no canonical entry.
func BuiltinID(k Kind) TypeID {
	for i, b := range builtinKinds {
		if b == k {
			return TypeID(i)
		}
	}
	return NoType
}

// Builtins returns fresh descriptors for the canonical built-in types.
func Builtins() []*TypeDescriptor {
	out := make([]*TypeDescriptor, len(builtinKinds))
	for i, k := range builtinKinds {
		tag, _ := UniversalTag(k)
		out[i] = &TypeDescriptor{
			ID:              TypeID(i),
			Path:            string(k),
			Kind:            k,
			Builtin:         true,
			Element:         NoType,
			Base:            NoType,
			Tag:             tag,
			ExtensionMarker: -1,
		}
	}
	return out
}

// keywordKinds maps the canonical keyword spelling of a built-in type to its
// kind. T61String and ISO646String are synonyms.
var keywordKinds = map[string]Kind{
	"BOOLEAN": KindBoolean, "INTEGER": KindInteger, "BIT STRING": KindBitString,
	"OCTET STRING": KindOctetString, "NULL": KindNull,
	"OBJECT IDENTIFIER": KindObjectIdentifier, "ObjectDescriptor": KindObjectDescriptor,
	"EXTERNAL": KindExternal, "REAL": KindReal, "EMBEDDED PDV": KindEmbeddedPDV,
	"UTF8String": KindUTF8String, "RELATIVE-OID": KindRelativeOID, "TIME": KindTime,
	"NumericString": KindNumericString, "PrintableString": KindPrintableString,
	"TeletexString": KindTeletexString, "T61String": KindTeletexString,
	"VideotexString": KindVideotexString, "IA5String": KindIA5String,
	"UTCTime": KindUTCTime, "GeneralizedTime": KindGeneralizedTime,
	"GraphicString": KindGraphicString, "VisibleString": KindVisibleString,
	"ISO646String": KindVisibleString, "GeneralString": KindGeneralString,
	"UniversalString": KindUniversalString, "CHARACTER STRING": KindCharacterString,
	"BMPString": KindBMPString, "DATE": KindDate, "TIME-OF-DAY": KindTimeOfDay,
	"DATE-TIME": KindDateTime, "DURATION": KindDuration, "OID-IRI": KindOIDIRI,
	"RELATIVE-OID-IRI": KindRelativeOIDIRI, "INSTANCE OF": KindInstanceOf,
}

// KeywordKind returns the kind for a built-in type keyword.
func KeywordKind(keyword string) (Kind, bool) {
	k, ok := keywordKinds[keyword]
	return k, ok
}
