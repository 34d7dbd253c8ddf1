// Package capability holds the wire-level record types shared by discovery,
// rpc, routing, and monitoring. They mirror the JSON payloads in spec.md
// section 6 exactly, so every component serializes and deserializes the same
// shapes regardless of which topic carries them.
package capability

import "time"

// ParticipantRole identifies what kind of process joined the bus.
type ParticipantRole string

const (
	RoleInterface ParticipantRole = "Interface"
	RoleAgent     ParticipantRole = "Agent"
	RoleService   ParticipantRole = "Service"
	RoleViewer    ParticipantRole = "Viewer"
)

// AgentType distinguishes a primary (general) agent from a specialist.
type AgentType string

const (
	AgentTypeGeneral    AgentType = "general"
	AgentTypeSpecialist AgentType = "specialist"
)

// Agent is the durable record advertised on genesis/agent_capability.
type Agent struct {
	AgentID            string         `json:"agent_id"`
	ServiceEndpoint    string         `json:"service_endpoint"`
	DisplayName        string         `json:"display_name"`
	AgentType          AgentType      `json:"agent_type"`
	Specializations    []string       `json:"specializations"`
	Capabilities       []string       `json:"capabilities"`
	ClassificationTags []string       `json:"classification_tags"`
	DefaultCapable     bool           `json:"default_capable"`
	ModelInfo          map[string]any `json:"model_info,omitempty"`
	PerformanceMetrics map[string]any `json:"performance_metrics,omitempty"`
}

// Key returns the discovery key for this record (agent_id).
func (c Agent) Key() string { return c.AgentID }

// Function is the durable record advertised on genesis/function_capability.
type Function struct {
	FunctionID        string         `json:"function_id"`
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	ParameterSchema   map[string]any `json:"parameter_schema"`
	ProviderServiceID string         `json:"provider_service_id"`
	ServiceEndpoint   string         `json:"service_endpoint"`
}

// Key returns the discovery key for this record (function_id).
func (c Function) Key() string { return c.FunctionID }

// Presence is the minimal liveness record advertised on genesis/presence.
type Presence struct {
	AgentID     string          `json:"agent_id"`
	DisplayName string          `json:"display_name"`
	Role        ParticipantRole `json:"role"`
}

// Key returns the discovery key for this record (agent_id).
func (p Presence) Key() string { return p.AgentID }

// InterfaceAgentRequest is the payload of genesis/interface_agent_request.
type InterfaceAgentRequest struct {
	Message        string            `json:"message"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// AgentReply is the shared reply shape for Interface<->Agent and Agent<->Agent.
type AgentReply struct {
	Status       int    `json:"status"`
	Message      string `json:"message"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// AgentAgentRequest is the payload of genesis/agent_agent_request.
type AgentAgentRequest struct {
	Message        string            `json:"message"`
	ConversationID string            `json:"conversation_id,omitempty"`
	ChainID        string            `json:"chain_id"`
	ParentCallID   string            `json:"parent_call_id,omitempty"`
	HopCount       int               `json:"hop_count"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// FunctionRequest is the payload of genesis/function_request.
type FunctionRequest struct {
	FunctionName  string `json:"function_name"`
	ArgumentsJSON string `json:"arguments_json"`
}

// FunctionReply is the payload of genesis/function_reply.
type FunctionReply struct {
	Status       int    `json:"status"`
	ResultJSON   string `json:"result_json,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// NodeType enumerates the kinds of topology nodes.
type NodeType string

const (
	NodeInterface    NodeType = "Interface"
	NodePrimaryAgent NodeType = "PrimaryAgent"
	NodeSpecialist   NodeType = "SpecialistAgent"
	NodeService      NodeType = "Service"
	NodeFunction     NodeType = "Function"
)

// NodeState enumerates the lifecycle states of a topology node.
type NodeState string

const (
	NodeDiscovering NodeState = "Discovering"
	NodeReady       NodeState = "Ready"
	NodeBusy        NodeState = "Busy"
	NodeFailed      NodeState = "Failed"
	NodeDeparted    NodeState = "Departed"
)

// EdgeType enumerates the kinds of topology edges.
type EdgeType string

const (
	EdgeDiscovers          EdgeType = "Discovers"
	EdgeRpcRequest         EdgeType = "RpcRequest"
	EdgeHostsFunction      EdgeType = "HostsFunction"
	EdgeExplicitConnection EdgeType = "ExplicitConnection"
)

// TopologyKind discriminates Node from Edge samples on genesis/topology.
type TopologyKind string

const (
	TopologyNode TopologyKind = "Node"
	TopologyEdge TopologyKind = "Edge"
)

// TopologySample is the payload of genesis/topology.
type TopologySample struct {
	ElementID     string         `json:"element_id"`
	Kind          TopologyKind   `json:"kind"`
	Timestamp     time.Time      `json:"timestamp"`
	ComponentName string         `json:"component_name,omitempty"`
	ComponentType NodeType       `json:"component_type,omitempty"`
	State         NodeState      `json:"state,omitempty"`
	SourceID      string         `json:"source_id,omitempty"`
	TargetID      string         `json:"target_id,omitempty"`
	EdgeType      EdgeType       `json:"edge_type,omitempty"`
	Metadata      map[string]any `json:"metadata_json,omitempty"`
}

// EventKind discriminates the payloads carried on genesis/event.
type EventKind string

const (
	EventChain     EventKind = "Chain"
	EventLifecycle EventKind = "Lifecycle"
	EventGeneral   EventKind = "General"
)

// ChainEventType enumerates the three points in a call's lifecycle.
type ChainEventType string

const (
	ChainStart    ChainEventType = "Start"
	ChainComplete ChainEventType = "Complete"
	ChainError    ChainEventType = "Error"
)

// ChainAbandonedStatus is the status string for a Chain.Start that never
// closed. The monitoring graph's Sweep drops such calls without emitting an
// event that carries this status.
const ChainAbandonedStatus = "ChainAbandoned"

// ChainPayload is the Chain-kind payload nested in an Event.
type ChainPayload struct {
	ChainID      string         `json:"chain_id"`
	CallID       string         `json:"call_id"`
	ParentCallID string         `json:"parent_call_id,omitempty"`
	SourceID     string         `json:"source_id"`
	TargetID     string         `json:"target_id"`
	EventType    ChainEventType `json:"event_type"`
	Status       string         `json:"status"`
}

// Event is the payload of genesis/event.
type Event struct {
	EventID     string         `json:"event_id"`
	Kind        EventKind      `json:"kind"`
	Timestamp   time.Time      `json:"timestamp"`
	ComponentID string         `json:"component_id"`
	Severity    string         `json:"severity"`
	Message     string         `json:"message"`
	Payload     map[string]any `json:"payload_json,omitempty"`
}
