package chain

const escrowABI = `[
	{"type":"function","name":"lock","stateMutability":"nonpayable","inputs":[{"name":"jobId","type":"uint256"},{"name":"poster","type":"address"},{"name":"worker","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"release","stateMutability":"nonpayable","inputs":[{"name":"jobId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"refund","stateMutability":"nonpayable","inputs":[{"name":"jobId","type":"uint256"}],"outputs":[]}
]`

const jobsABI = `[
	{"type":"function","name":"nextJobId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"createJob","stateMutability":"nonpayable","inputs":[{"name":"minScore","type":"uint256"},{"name":"cid","type":"string"}],"outputs":[]},
	{"type":"function","name":"assignWorker","stateMutability":"nonpayable","inputs":[{"name":"jobId","type":"uint256"},{"name":"worker","type":"address"}],"outputs":[]},
	{"type":"function","name":"approveJob","stateMutability":"nonpayable","inputs":[{"name":"jobId","type":"uint256"},{"name":"rating","type":"uint8"}],"outputs":[]}
]`

const badgeABI = `[
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"tier","type":"string"}],"outputs":[]},
	{"type":"function","name":"updateMetadata","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"tier","type":"string"}],"outputs":[]}
]`

const verifierABI = `[
	{"type":"function","name":"verifyProof","stateMutability":"view","inputs":[{"name":"proof","type":"bytes"},{"name":"publicInputs","type":"bytes32[]"}],"outputs":[{"name":"","type":"bool"}]}
]`
