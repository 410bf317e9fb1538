// internal/listener/listener_test.go
package listener

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lp-sniper/internal/chain"
	"lp-sniper/internal/dex/raydium"
	"lp-sniper/internal/storage/models"
)

// fakeStream replays scripted log notifications, then fails.
type fakeStream struct {
	mu      sync.Mutex
	results []*ws.LogResult
	err     error

	unsubscribed bool
}

func (f *fakeStream) Recv(ctx context.Context) (*ws.LogResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) == 0 {
		return nil, f.err
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func (f *fakeStream) Unsubscribe() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = true
}

// fakeSource scripts the transaction lookups behind the stream.
type fakeSource struct {
	mu       sync.Mutex
	stream   *fakeStream
	txs      map[solana.Signature]*rpc.GetTransactionResult
	failures map[solana.Signature]int
	calls    map[solana.Signature]int
}

func (f *fakeSource) GetTransaction(_ context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[solana.Signature]int)
	}
	f.calls[sig]++
	if f.failures[sig] > 0 {
		f.failures[sig]--
		return nil, errors.New("transaction not available yet")
	}
	tx, ok := f.txs[sig]
	if !ok {
		return nil, errors.New("transaction not found")
	}
	return tx, nil
}

func (f *fakeSource) SubscribeLogs(solana.PublicKey) (chain.LogStream, error) {
	return f.stream, nil
}

// fakePoolQuery backs the fetcher with canned accounts and decimals.
type fakePoolQuery struct {
	accounts map[solana.PublicKey][]byte
	decimals map[solana.PublicKey]uint8
}

func (f *fakePoolQuery) GetTransaction(context.Context, solana.Signature) (*rpc.GetTransactionResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePoolQuery) GetAccountData(_ context.Context, account solana.PublicKey) ([]byte, error) {
	data, ok := f.accounts[account]
	if !ok {
		return nil, errors.New("account not found")
	}
	return data, nil
}

func (f *fakePoolQuery) GetTokenSupplyDecimals(_ context.Context, mint solana.PublicKey) (uint8, error) {
	d, ok := f.decimals[mint]
	if !ok {
		return 0, errors.New("token supply unavailable")
	}
	return d, nil
}

func (f *fakePoolQuery) GetTokenBalance(context.Context, solana.PublicKey) (uint64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakePoolQuery) SubscribeAccountChanges(context.Context, solana.PublicKey) (chain.ReserveSubscription, error) {
	return nil, errors.New("not implemented")
}

// fakeStore counts persisted records.
type fakeStore struct {
	mu    sync.Mutex
	saved []*raydium.PoolRecord
}

func (f *fakeStore) SavePoolRecord(_ context.Context, rec *raydium.PoolRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeStore) GetPoolRecord(context.Context, string) (*models.PoolRecord, error) {
	return nil, nil
}

func (f *fakeStore) RunMigrations() error { return nil }
func (f *fakeStore) Close() error         { return nil }

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func initPayload(quote, base uint64) []byte {
	data := make([]byte, 26)
	data[0] = 1
	binary.LittleEndian.PutUint64(data[10:], quote)
	binary.LittleEndian.PutUint64(data[18:], base)
	return data
}

// initTxKeys returns account keys for a full initialize2 with the AMM
// program at index 0.
func initTxKeys() []solana.PublicKey {
	keys := make([]solana.PublicKey, 24)
	keys[0] = raydium.RaydiumV4ProgramID
	for i := 1; i < len(keys); i++ {
		keys[i] = solana.NewWallet().PublicKey()
	}
	return keys
}

func sequentialIndexes(n int) []uint16 {
	idx := make([]uint16, n)
	for i := range idx {
		idx[i] = uint16(i + 1)
	}
	return idx
}

// txResult wraps a parsed transaction the way the RPC layer delivers it.
func txResult(t *testing.T, keys []solana.PublicKey, ixs []solana.CompiledInstruction) *rpc.GetTransactionResult {
	t.Helper()
	tx := &solana.Transaction{
		Signatures: []solana.Signature{{1}},
		Message: solana.Message{
			AccountKeys:     keys,
			RecentBlockhash: solana.Hash{1},
			Instructions:    ixs,
		},
	}
	raw, err := json.Marshal(tx)
	require.NoError(t, err)

	var envelope rpc.TransactionResultEnvelope
	require.NoError(t, envelope.UnmarshalJSON(raw))
	return &rpc.GetTransactionResult{Transaction: &envelope}
}

func logMsg(sig solana.Signature, failed bool) *ws.LogResult {
	res := &ws.LogResult{}
	res.Value.Signature = sig
	if failed {
		res.Value.Err = map[string]interface{}{"InstructionError": []interface{}{}}
	}
	return res
}

func poolStateData() []byte {
	buf := make([]byte, raydium.LiquidityStateV4Size)
	binary.LittleEndian.PutUint64(buf[8:], 254) // nonce
	return buf
}

func marketData() []byte {
	return make([]byte, raydium.MarketMinDataLen)
}

func testListener(t *testing.T, source *fakeSource, query *fakePoolQuery, store *fakeStore, onRecord func(*raydium.PoolRecord)) *Listener {
	t.Helper()
	owner := solana.NewWallet().PublicKey()
	decoder := raydium.NewDecoder(raydium.RaydiumV4ProgramID, zap.NewNop())
	fetcher := raydium.NewFetcher(query, owner, zap.NewNop(), raydium.FetcherOptions{
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
	l := New(source, decoder, fetcher, store, raydium.RaydiumV4ProgramID, zap.NewNop(), onRecord)
	l.fetchAttempts = 2
	l.fetchDelay = time.Millisecond
	return l
}

func TestListenSkipsFailingCandidates(t *testing.T) {
	// Four candidates in sequence: a failed transaction, a malformed
	// instruction, one whose pool account never appears, one missing a
	// required identity field, and finally a good one. Only the good
	// one may produce a record; none may stop the loop.
	failedSig := solana.Signature{10}
	malformedSig := solana.Signature{11}
	noPoolSig := solana.Signature{12}
	incompleteSig := solana.Signature{13}
	goodSig := solana.Signature{14}

	malformedKeys := initTxKeys()
	malformedTx := txResult(t, malformedKeys, []solana.CompiledInstruction{{
		ProgramIDIndex: 0,
		Accounts:       sequentialIndexes(22),
		Data:           initPayload(1, 1)[:20],
	}})

	noPoolKeys := initTxKeys()
	noPoolTx := txResult(t, noPoolKeys, []solana.CompiledInstruction{{
		ProgramIDIndex: 0,
		Accounts:       sequentialIndexes(22),
		Data:           initPayload(2_000_000_000, 1_000_000_000),
	}})

	// Zero out the market id account so the record fails validation.
	incompleteKeys := initTxKeys()
	incompleteIdx := sequentialIndexes(22)
	incompleteKeys[incompleteIdx[16]] = solana.PublicKey{}
	incompleteTx := txResult(t, incompleteKeys, []solana.CompiledInstruction{{
		ProgramIDIndex: 0,
		Accounts:       incompleteIdx,
		Data:           initPayload(2_000_000_000, 1_000_000_000),
	}})

	goodKeys := initTxKeys()
	goodIdx := sequentialIndexes(22)
	goodTx := txResult(t, goodKeys, []solana.CompiledInstruction{{
		ProgramIDIndex: 0,
		Accounts:       goodIdx,
		Data:           initPayload(2_000_000_000, 1_000_000_000),
	}})

	streamErr := errors.New("stream closed")
	source := &fakeSource{
		stream: &fakeStream{
			results: []*ws.LogResult{
				logMsg(failedSig, true),
				logMsg(malformedSig, false),
				logMsg(noPoolSig, false),
				logMsg(incompleteSig, false),
				logMsg(goodSig, false),
			},
			err: streamErr,
		},
		txs: map[solana.Signature]*rpc.GetTransactionResult{
			malformedSig:  malformedTx,
			noPoolSig:     noPoolTx,
			incompleteSig: incompleteTx,
			goodSig:       goodTx,
		},
	}

	query := &fakePoolQuery{
		accounts: map[solana.PublicKey][]byte{
			// The no-pool candidate's pool account is absent; the
			// incomplete and good candidates both resolve fully.
			incompleteKeys[incompleteIdx[4]]: poolStateData(),
			solana.PublicKey{}:               marketData(),
			goodKeys[goodIdx[4]]:             poolStateData(),
			goodKeys[goodIdx[16]]:            marketData(),
		},
		decimals: map[solana.PublicKey]uint8{},
	}

	store := &fakeStore{}
	var mu sync.Mutex
	var records []*raydium.PoolRecord
	l := testListener(t, source, query, store, func(rec *raydium.PoolRecord) {
		mu.Lock()
		defer mu.Unlock()
		records = append(records, rec)
	})

	err := l.listen(context.Background())
	assert.ErrorIs(t, err, streamErr)
	assert.True(t, source.stream.unsubscribed)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(records) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, goodKeys[goodIdx[4]], records[0].PoolID)
	mu.Unlock()
	assert.Equal(t, 1, store.count())

	// The failed transaction is skipped without a lookup.
	source.mu.Lock()
	assert.Zero(t, source.calls[failedSig])
	source.mu.Unlock()
}

func TestHandleSignatureSkipsWithoutRecord(t *testing.T) {
	sig := solana.Signature{20}
	keys := initTxKeys()
	// Instruction for a different program: no match, silent skip.
	tx := txResult(t, keys, []solana.CompiledInstruction{{
		ProgramIDIndex: 1,
		Accounts:       sequentialIndexes(22),
		Data:           initPayload(1, 1),
	}})

	source := &fakeSource{
		txs: map[solana.Signature]*rpc.GetTransactionResult{sig: tx},
	}
	store := &fakeStore{}
	called := false
	l := testListener(t, source, &fakePoolQuery{}, store, func(*raydium.PoolRecord) { called = true })

	l.handleSignature(context.Background(), sig)

	assert.False(t, called)
	assert.Zero(t, store.count())
}

func TestFetchTransactionRetries(t *testing.T) {
	sig := solana.Signature{30}
	keys := initTxKeys()
	tx := txResult(t, keys, []solana.CompiledInstruction{{
		ProgramIDIndex: 0,
		Accounts:       sequentialIndexes(22),
		Data:           initPayload(1, 1),
	}})

	source := &fakeSource{
		txs:      map[solana.Signature]*rpc.GetTransactionResult{sig: tx},
		failures: map[solana.Signature]int{sig: 1},
	}
	l := testListener(t, source, &fakePoolQuery{}, &fakeStore{}, nil)
	l.fetchAttempts = 3

	got, err := l.fetchTransaction(context.Background(), sig)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, 2, source.calls[sig])
}

func TestFetchTransactionGivesUp(t *testing.T) {
	sig := solana.Signature{31}
	source := &fakeSource{
		failures: map[solana.Signature]int{sig: 10},
	}
	l := testListener(t, source, &fakePoolQuery{}, &fakeStore{}, nil)

	_, err := l.fetchTransaction(context.Background(), sig)
	require.Error(t, err)
	assert.Equal(t, l.fetchAttempts, source.calls[sig])
}
