package dynatrace

// Environment API v2 response shapes. Timestamps are epoch milliseconds;
// an EndTime of -1 means the problem is still open.

// ProblemList is the /problems collection response.
type ProblemList struct {
	TotalCount int       `json:"totalCount"`
	PageSize   int       `json:"pageSize"`
	Problems   []Problem `json:"problems"`
}

// Problem is a Dynatrace-detected incident.
type Problem struct {
	ProblemID        string           `json:"problemId"`
	DisplayID        string           `json:"displayId"`
	Title            string           `json:"title"`
	Status           string           `json:"status"`
	SeverityLevel    string           `json:"severityLevel"`
	ImpactLevel      string           `json:"impactLevel"`
	StartTime        int64            `json:"startTime"`
	EndTime          int64            `json:"endTime"`
	AffectedEntities []EntityStub     `json:"affectedEntities,omitempty"`
	RootCauseEntity  *EntityStub      `json:"rootCauseEntity,omitempty"`
	EvidenceDetails  *EvidenceDetails `json:"evidenceDetails,omitempty"`
}

// EntityStub references an entity from within another record.
type EntityStub struct {
	EntityID EntityRef `json:"entityId"`
	Name     string    `json:"name,omitempty"`
}

// EntityRef is a bare entity identifier. Name is present in some
// relationship payloads, absent in others.
type EntityRef struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}

// EvidenceDetails carries root-cause evidence attached to a problem.
type EvidenceDetails struct {
	TotalCount int        `json:"totalCount"`
	Details    []Evidence `json:"details"`
}

// Evidence is one root-cause indicator (event, metric or availability).
type Evidence struct {
	EvidenceType string     `json:"evidenceType"`
	DisplayName  string     `json:"displayName"`
	Entity       EntityStub `json:"entity"`
	RootCause    bool       `json:"rootCauseRelevant,omitempty"`
	EventType    string     `json:"eventType,omitempty"`
	MetricID     string     `json:"metricId,omitempty"`
	StartTime    int64      `json:"startTime,omitempty"`
}

// EntityList is the /entities collection response.
type EntityList struct {
	TotalCount int      `json:"totalCount"`
	PageSize   int      `json:"pageSize"`
	Entities   []Entity `json:"entities"`
}

// Entity is a monitored entity (host, service, process group, ...).
// Relationship maps are keyed by relationship type.
type Entity struct {
	EntityID          string                 `json:"entityId"`
	Type              string                 `json:"type"`
	DisplayName       string                 `json:"displayName"`
	Properties        map[string]any         `json:"properties,omitempty"`
	Tags              []Tag                  `json:"tags,omitempty"`
	FromRelationships map[string][]EntityRef `json:"fromRelationships,omitempty"`
	ToRelationships   map[string][]EntityRef `json:"toRelationships,omitempty"`
}

// Tag is an entity tag.
type Tag struct {
	Context string `json:"context,omitempty"`
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
}

// EntityTypeList is the /entityTypes response.
type EntityTypeList struct {
	TotalCount int          `json:"totalCount"`
	Types      []EntityType `json:"types"`
}

// EntityType describes one monitorable entity type.
type EntityType struct {
	Type        string `json:"type"`
	DisplayName string `json:"displayName,omitempty"`
}

// MetricList is the /metrics search response.
type MetricList struct {
	TotalCount int                `json:"totalCount"`
	Metrics    []MetricDefinition `json:"metrics"`
}

// MetricDefinition describes one available metric.
type MetricDefinition struct {
	MetricID    string `json:"metricId"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
	Unit        string `json:"unit,omitempty"`
}

// MetricQueryResult is the /metrics/query response.
type MetricQueryResult struct {
	Resolution string                   `json:"resolution,omitempty"`
	Result     []MetricSeriesCollection `json:"result"`
}

// MetricSeriesCollection groups the series returned for one metric.
type MetricSeriesCollection struct {
	MetricID string         `json:"metricId"`
	Data     []MetricSeries `json:"data"`
}

// MetricSeries is one dimension tuple's data points. Values may be nil
// where the API reports gaps.
type MetricSeries struct {
	Dimensions []string   `json:"dimensions,omitempty"`
	Timestamps []int64    `json:"timestamps"`
	Values     []*float64 `json:"values"`
}

// EventList is the /events collection response.
type EventList struct {
	TotalCount int     `json:"totalCount"`
	Events     []Event `json:"events"`
}

// Event is a single monitoring event.
type Event struct {
	EventID   string     `json:"eventId"`
	EventType string     `json:"eventType"`
	Title     string     `json:"title"`
	Status    string     `json:"status,omitempty"`
	StartTime int64      `json:"startTime"`
	EndTime   int64      `json:"endTime,omitempty"`
	Entity    EntityStub `json:"entityId,omitempty"`
}

// ReleaseList is the /releases collection response.
type ReleaseList struct {
	TotalCount int       `json:"totalCount"`
	PageSize   int       `json:"pageSize"`
	Releases   []Release `json:"releases"`
}

// Release is one deployment/release record.
type Release struct {
	Name             string   `json:"name"`
	Version          string   `json:"version,omitempty"`
	Product          string   `json:"product,omitempty"`
	Stage            string   `json:"stage,omitempty"`
	ReleaseTime      int64    `json:"releaseTime,omitempty"`
	AffectedEntities []string `json:"affectedEntities,omitempty"`
}
