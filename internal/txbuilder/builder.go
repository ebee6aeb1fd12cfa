// Package txbuilder assembles Sui programmable transactions for the wallet
// to sign. It performs shape checks only; funds, registration and listing
// existence are enforced on chain.
package txbuilder

import (
	"errors"
	"fmt"
	"strings"

	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

var (
	ErrEmptyField    = errors.New("required field is empty")
	ErrInvalidUTF8   = errors.New("string is not valid UTF-8")
	ErrZeroAmount    = errors.New("amount must be greater than zero")
	ErrInvalidTarget = errors.New("move call target must be package::module::function")
)

// TransactionVersion is the serialized transaction format understood by
// wallets.
const TransactionVersion = 2

// Argument references a value inside a programmable transaction. Exactly
// one field is set.
type Argument struct {
	GasCoin      bool       `json:"GasCoin,omitempty"`
	Input        *uint16    `json:"Input,omitempty"`
	Result       *uint16    `json:"Result,omitempty"`
	NestedResult *[2]uint16 `json:"NestedResult,omitempty"`
}

// GasCoin is the argument naming the payer's gas coin.
func GasCoin() Argument { return Argument{GasCoin: true} }

func inputArg(i uint16) Argument { return Argument{Input: &i} }

func resultArg(i uint16) Argument { return Argument{Result: &i} }

func nestedResultArg(cmd, idx uint16) Argument {
	return Argument{NestedResult: &[2]uint16{cmd, idx}}
}

// CallArg is a transaction input: either BCS bytes or an object id left for
// the wallet to resolve.
type CallArg struct {
	Pure             *PureArg         `json:"Pure,omitempty"`
	UnresolvedObject *UnresolvedObject `json:"UnresolvedObject,omitempty"`
}

type PureArg struct {
	Bytes string `json:"bytes"`
}

type UnresolvedObject struct {
	ObjectID string `json:"objectId"`
}

// Command is one step of a programmable transaction. Exactly one field is set.
type Command struct {
	SplitCoins *SplitCoins `json:"SplitCoins,omitempty"`
	MoveCall   *MoveCall   `json:"MoveCall,omitempty"`
}

type SplitCoins struct {
	Coin    Argument   `json:"coin"`
	Amounts []Argument `json:"amounts"`
}

type MoveCall struct {
	Package       string     `json:"package"`
	Module        string     `json:"module"`
	Function      string     `json:"function"`
	TypeArguments []string   `json:"typeArguments"`
	Arguments     []Argument `json:"arguments"`
}

// GasData is left empty; the wallet selects payment coins, budget and price.
type GasData struct {
	Budget  *string  `json:"budget"`
	Price   *string  `json:"price"`
	Owner   *string  `json:"owner"`
	Payment []string `json:"payment"`
}

// Transaction is the serialized form handed to the wallet.
type Transaction struct {
	Version  int       `json:"version"`
	Sender   string    `json:"sender,omitempty"`
	GasData  GasData   `json:"gasData"`
	Inputs   []CallArg `json:"inputs"`
	Commands []Command `json:"commands"`
}

// WithSender returns a copy of t with the sender set.
func (t *Transaction) WithSender(addr string) *Transaction {
	out := *t
	out.Sender = addr
	return &out
}

// Targets lists the fully qualified move call targets in command order.
func (t *Transaction) Targets() []string {
	var out []string
	for _, cmd := range t.Commands {
		if cmd.MoveCall != nil {
			out = append(out, cmd.MoveCall.Package+"::"+cmd.MoveCall.Module+"::"+cmd.MoveCall.Function)
		}
	}
	return out
}

// Builder accumulates inputs and commands. The first error encountered is
// kept and returned by Build; later calls become no-ops.
type Builder struct {
	inputs   []CallArg
	commands []Command
	objects  map[string]uint16
	err      error
}

func New() *Builder {
	return &Builder{objects: make(map[string]uint16)}
}

func (b *Builder) fail(err error) Argument {
	if b.err == nil {
		b.err = err
	}
	return Argument{}
}

func (b *Builder) addInput(arg CallArg) Argument {
	b.inputs = append(b.inputs, arg)
	return inputArg(uint16(len(b.inputs) - 1))
}

func (b *Builder) addCommand(cmd Command) uint16 {
	b.commands = append(b.commands, cmd)
	return uint16(len(b.commands) - 1)
}

func (b *Builder) pure(data []byte) Argument {
	return b.addInput(CallArg{Pure: &PureArg{Bytes: pureBytes(data)}})
}

// PureU64 adds a u64 input.
func (b *Builder) PureU64(v uint64) Argument {
	if b.err != nil {
		return Argument{}
	}
	return b.pure(encodeU64(v))
}

// PureAddress adds an address input.
func (b *Builder) PureAddress(name, addr string) Argument {
	if b.err != nil {
		return Argument{}
	}
	if addr == "" {
		return b.fail(fmt.Errorf("%w: %s", ErrEmptyField, name))
	}
	data, err := encodeAddress(addr)
	if err != nil {
		return b.fail(fmt.Errorf("%s: %w", name, err))
	}
	return b.pure(data)
}

// PureString adds a non-empty UTF-8 string input.
func (b *Builder) PureString(name, s string) Argument {
	if b.err != nil {
		return Argument{}
	}
	if strings.TrimSpace(s) == "" {
		return b.fail(fmt.Errorf("%w: %s", ErrEmptyField, name))
	}
	data, err := encodeString(s)
	if err != nil {
		return b.fail(fmt.Errorf("%s: %w", name, err))
	}
	return b.pure(data)
}

// Object adds an object input. Repeated ids share one input.
func (b *Builder) Object(name, id string) Argument {
	if b.err != nil {
		return Argument{}
	}
	if id == "" {
		return b.fail(fmt.Errorf("%w: %s", ErrEmptyField, name))
	}
	norm, err := sui.NormalizeAddress(id)
	if err != nil {
		return b.fail(fmt.Errorf("%s: %w", name, err))
	}
	if idx, ok := b.objects[norm]; ok {
		return inputArg(idx)
	}
	arg := b.addInput(CallArg{UnresolvedObject: &UnresolvedObject{ObjectID: norm}})
	b.objects[norm] = *arg.Input
	return arg
}

// SplitGas splits a coin of amount MIST off the gas coin and returns it.
func (b *Builder) SplitGas(amount uint64) Argument {
	if b.err != nil {
		return Argument{}
	}
	if amount == 0 {
		return b.fail(ErrZeroAmount)
	}
	amt := b.PureU64(amount)
	cmd := b.addCommand(Command{SplitCoins: &SplitCoins{
		Coin:    GasCoin(),
		Amounts: []Argument{amt},
	}})
	return nestedResultArg(cmd, 0)
}

// MoveCall invokes target, written package::module::function, and returns
// its result.
func (b *Builder) MoveCall(target string, typeArgs []string, args ...Argument) Argument {
	if b.err != nil {
		return Argument{}
	}
	parts := strings.Split(target, "::")
	if len(parts) == 3 && parts[0] == "" {
		return b.fail(fmt.Errorf("%w: package", ErrEmptyField))
	}
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return b.fail(fmt.Errorf("%w: %q", ErrInvalidTarget, target))
	}
	cmd := b.addCommand(Command{MoveCall: &MoveCall{
		Package:       parts[0],
		Module:        parts[1],
		Function:      parts[2],
		TypeArguments: append(make([]string, 0, len(typeArgs)), typeArgs...),
		Arguments:     append(make([]Argument, 0, len(args)), args...),
	}})
	return resultArg(cmd)
}

// Build returns the assembled transaction or the first error recorded.
func (b *Builder) Build() (*Transaction, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.commands) == 0 {
		return nil, errors.New("transaction has no commands")
	}
	return &Transaction{
		Version:  TransactionVersion,
		GasData:  GasData{Payment: []string{}},
		Inputs:   append([]CallArg(nil), b.inputs...),
		Commands: append([]Command(nil), b.commands...),
	}, nil
}
