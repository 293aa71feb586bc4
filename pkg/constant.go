package pkg

const (
	INF_WEIGHT float64 = 1e15

	// corridor half-width in degrees (~33 m at the equator)
	DEFAULT_CORRIDOR_HALF_WIDTH = 0.0003
	// meters of road reachable from either endpoint of the current edge
	DEFAULT_HOP_SEARCH_RADIUS = 50.0
	DEFAULT_MAX_SUBSEGMENT_M  = 60.0
	DEFAULT_MIN_SPEED         = 3.0

	DEFAULT_WEIGHT_DIRECTION   = 0.4
	DEFAULT_WEIGHT_CONTAINMENT = 0.3
	DEFAULT_WEIGHT_HOP         = 0.15
	DEFAULT_WEIGHT_DISTANCE    = 0.15

	DEFAULT_TILE_CELL_LEVEL = 10

	UNDEFINED_STREET_NAME = "Undefined"
)

type OsmHighwayType uint8

// enum buat osm highway buat routing: https://wiki.openstreetmap.org/wiki/OSM_tags_for_routing/Telenav
const (
	MOTORWAY       OsmHighwayType = 0
	TRUNK          OsmHighwayType = 1
	PRIMARY        OsmHighwayType = 2
	SECONDARY      OsmHighwayType = 3
	TERTIARY       OsmHighwayType = 4
	RESIDENTIAL    OsmHighwayType = 5
	SERVICE        OsmHighwayType = 6
	UNCLASSIFIED   OsmHighwayType = 7
	MOTORWAY_LINK  OsmHighwayType = 8
	TRUNK_LINK     OsmHighwayType = 9
	PRIMARY_LINK   OsmHighwayType = 10
	SECONDARY_LINK OsmHighwayType = 11
	TERTIARY_LINK  OsmHighwayType = 12
	LIVING_STREET  OsmHighwayType = 13
	ROAD           OsmHighwayType = 14
	TRACK          OsmHighwayType = 15
	MOTORROAD      OsmHighwayType = 16
	UNKNOWN        OsmHighwayType = 17
)

var highwayNames = [...]string{
	MOTORWAY:       "motorway",
	TRUNK:          "trunk",
	PRIMARY:        "primary",
	SECONDARY:      "secondary",
	TERTIARY:       "tertiary",
	RESIDENTIAL:    "residential",
	SERVICE:        "service",
	UNCLASSIFIED:   "unclassified",
	MOTORWAY_LINK:  "motorway_link",
	TRUNK_LINK:     "trunk_link",
	PRIMARY_LINK:   "primary_link",
	SECONDARY_LINK: "secondary_link",
	TERTIARY_LINK:  "tertiary_link",
	LIVING_STREET:  "living_street",
	ROAD:           "road",
	TRACK:          "track",
	MOTORROAD:      "motorroad",
	UNKNOWN:        "unknown",
}

func (h OsmHighwayType) String() string {
	if int(h) >= len(highwayNames) {
		return highwayNames[UNKNOWN]
	}
	return highwayNames[h]
}

func GetHighwayType(roadType string) OsmHighwayType {
	switch roadType {
	case "motorway":
		return MOTORWAY
	case "trunk":
		return TRUNK
	case "primary":
		return PRIMARY
	case "secondary":
		return SECONDARY
	case "tertiary":
		return TERTIARY
	case "unclassified":
		return UNCLASSIFIED
	case "residential":
		return RESIDENTIAL
	case "service":
		return SERVICE
	case "motorway_link":
		return MOTORWAY_LINK
	case "trunk_link":
		return TRUNK_LINK
	case "primary_link":
		return PRIMARY_LINK
	case "secondary_link":
		return SECONDARY_LINK
	case "tertiary_link":
		return TERTIARY_LINK
	case "living_street":
		return LIVING_STREET
	case "road":
		return ROAD
	case "track":
		return TRACK
	case "motorroad":
		return MOTORROAD
	default:
		return UNKNOWN
	}
}
